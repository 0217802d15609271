package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 12, 26, hour, minute, 0, 0, time.UTC)
}

func TestFormatTime(t *testing.T) {
	base := DefaultClockConfig()

	t.Run("afternoon in 12-hour mode", func(t *testing.T) {
		got := FormatTime(at(14, 5), base)
		assert.Equal(t, TimeData{Hours: "2", Minutes: "05", AmPm: "PM", Formatted: "2:05 PM"}, got)
	})

	t.Run("midnight is 12 AM", func(t *testing.T) {
		got := FormatTime(at(0, 0), base)
		assert.Equal(t, "12", got.Hours)
		assert.Equal(t, "AM", got.AmPm)
		assert.Equal(t, "12:00 AM", got.Formatted)
	})

	t.Run("noon is 12 PM", func(t *testing.T) {
		got := FormatTime(at(12, 30), base)
		assert.Equal(t, "12:30 PM", got.Formatted)
	})

	t.Run("13 renders as 1", func(t *testing.T) {
		assert.Equal(t, "1", FormatTime(at(13, 0), base).Hours)
	})

	t.Run("leading zero hours", func(t *testing.T) {
		cfg := base
		cfg.LeadingZeroHours = true
		got := FormatTime(at(9, 7), cfg)
		assert.Equal(t, "09", got.Hours)
		assert.Equal(t, "09:07 AM", got.Formatted)
	})

	t.Run("military pads and drops suffix", func(t *testing.T) {
		cfg := base
		cfg.Military = true
		got := FormatTime(at(0, 0), cfg)
		assert.Equal(t, "00", got.Hours)
		assert.Empty(t, got.AmPm)
		assert.Equal(t, "00:00", got.Formatted)

		assert.Equal(t, "14:05", FormatTime(at(14, 5), cfg).Formatted)
	})

	t.Run("am/pm off", func(t *testing.T) {
		cfg := base
		cfg.ShowAmPm = AmPmOff
		got := FormatTime(at(14, 5), cfg)
		assert.Equal(t, "2:05", got.Formatted)
		assert.Equal(t, "PM", got.AmPm)
	})

	t.Run("small keeps suffix in text", func(t *testing.T) {
		cfg := base
		cfg.ShowAmPm = AmPmSmall
		assert.Equal(t, "2:05 PM", FormatTime(at(14, 5), cfg).Formatted)
	})

	t.Run("custom divider", func(t *testing.T) {
		cfg := base
		cfg.Divider = "."
		assert.Equal(t, "2.05 PM", FormatTime(at(14, 5), cfg).Formatted)
	})
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2025, 12, 26, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		format, month, sep string
		want               string
	}{
		{DateMonthDayYear, MonthFull, "/", "12/26/2025"},
		{DateMonthDayYear, MonthFull, "-", "12-26-2025"},
		{DateDayMonthYear, MonthFull, "/", "26/12/2025"},
		{DateISO, MonthFull, "-", "2025-12-26"},
		{DateDotted, MonthFull, ".", "2025.12.26"},
		{DateShortMonth, MonthFull, "-", "Dec 26 2025"},
		{DateShortMonth, MonthNumeric, "-", "Dec 26 2025"},
		{DateLongMonth, MonthFull, "-", "December 26 2025"},
		{DateLongMonth, MonthAbbreviated, "-", "Dec 26 2025"},
		{DateLongMonth, MonthNumeric, "-", "12 26 2025"},
		{DateLongMonthOrd, MonthFull, "-", "December 26th 2025"},
		{DateDayLongMonth, MonthFull, "-", "26 December 2025"},
		{"not a format", MonthFull, "-", "12-26-2025"},
		{DateMonthDayYear, MonthFull, "", "12262025"},
	}
	for _, tc := range tests {
		t.Run(tc.format+"/"+tc.month+"/"+tc.sep, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatDate(d, tc.format, tc.month, tc.sep))
		})
	}

	t.Run("textual formats use unpadded day", func(t *testing.T) {
		jan3 := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, "January 3rd 2026", FormatDate(jan3, DateLongMonthOrd, MonthFull, "-"))
		assert.Equal(t, "3 Jan 2026", FormatDate(jan3, DateDayLongMonth, MonthAbbreviated, "-"))
		assert.Equal(t, "01/03/2026", FormatDate(jan3, DateMonthDayYear, MonthFull, "/"))
	})
}

func TestFormatDate_Deterministic(t *testing.T) {
	d := time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)
	for _, f := range DateFormats {
		assert.Equal(t, FormatDate(d, f, MonthFull, "/"), FormatDate(d, f, MonthFull, "/"), f)
	}
}

func TestOrdinalSuffix(t *testing.T) {
	want := map[int]string{
		1: "st", 2: "nd", 3: "rd", 4: "th", 10: "th",
		11: "th", 12: "th", 13: "th",
		21: "st", 22: "nd", 23: "rd", 24: "th",
		30: "th", 31: "st",
	}
	for day, suffix := range want {
		assert.Equal(t, suffix, OrdinalSuffix(day), "day %d", day)
	}
}

func TestDayName(t *testing.T) {
	assert.Equal(t, "Friday", DayName(time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Thursday", DayName(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
}

func TestIsDateFormat(t *testing.T) {
	for _, f := range DateFormats {
		assert.True(t, IsDateFormat(f), f)
	}
	assert.False(t, IsDateFormat("MM/DD"))
	assert.False(t, IsDateFormat(""))
}

func TestRender(t *testing.T) {
	td, dd, sign := Render(time.Date(2025, 12, 26, 14, 5, 0, 0, time.UTC), DefaultClockConfig())
	assert.Equal(t, "2:05 PM", td.Formatted)
	assert.Equal(t, "December 26 2025", dd.Formatted)
	assert.Equal(t, "Friday", dd.DayName)
	assert.Equal(t, "Capricorn", sign.Name)
}
