package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZodiac_EveryDateHasExactlyOneSign(t *testing.T) {
	// 2024 is a leap year, so this walks all 366 month/day pairs.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	days := 0
	for d := start; d.Year() == 2024; d = d.AddDate(0, 0, 1) {
		days++
		matches := 0
		for _, sign := range ZodiacSigns {
			if sign.Contains(int(d.Month()), d.Day()) {
				matches++
			}
		}
		require.Equal(t, 1, matches, "%s", d.Format("Jan 2"))
	}
	assert.Equal(t, 366, days)
}

func TestZodiacFor_Boundaries(t *testing.T) {
	tests := []struct {
		month time.Month
		day   int
		want  string
	}{
		{time.December, 21, "Sagittarius"},
		{time.December, 22, "Capricorn"},
		{time.December, 31, "Capricorn"},
		{time.January, 1, "Capricorn"},
		{time.January, 19, "Capricorn"},
		{time.January, 20, "Aquarius"},
		{time.February, 18, "Aquarius"},
		{time.February, 19, "Pisces"},
		{time.February, 29, "Pisces"},
		{time.March, 20, "Pisces"},
		{time.March, 21, "Aries"},
		{time.June, 21, "Cancer"},
		{time.July, 22, "Cancer"},
		{time.July, 23, "Leo"},
		{time.November, 21, "Scorpio"},
		{time.November, 22, "Sagittarius"},
	}
	for _, tc := range tests {
		t.Run(tc.month.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, ZodiacFor(tc.month, tc.day).Name, "%s %d", tc.month, tc.day)
		})
	}
}

func TestZodiacFor_InvalidDateFallsBack(t *testing.T) {
	assert.Equal(t, "Capricorn", ZodiacFor(13, 40).Name)
	assert.Equal(t, "Capricorn", ZodiacFor(0, 0).Name)
}

func TestZodiacOf(t *testing.T) {
	sign := ZodiacOf(time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "Leo", sign.Name)
	assert.Equal(t, "♌", sign.Symbol)
	assert.Equal(t, ElementFire, sign.Element)
}

func TestZodiacByName(t *testing.T) {
	sign, ok := ZodiacByName("Libra")
	require.True(t, ok)
	assert.Equal(t, 9, sign.StartMonth)
	assert.Equal(t, 23, sign.StartDay)

	_, ok = ZodiacByName("Ophiuchus")
	assert.False(t, ok)
}
