package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySettings(t *testing.T) {
	prev := DefaultClockConfig()

	t.Run("applies known keys", func(t *testing.T) {
		res := ApplySettings(prev, map[string]any{
			SettingMilitaryTime:  true,
			SettingClockDivider:  ".",
			SettingDateFormat:    DateISO,
			SettingDateSeparator: "",
		})
		assert.True(t, res.Config.Military)
		assert.Equal(t, ".", res.Config.Divider)
		assert.Equal(t, DateISO, res.Config.DateFormat)
		assert.Empty(t, res.Config.DateSeparator)
		assert.ElementsMatch(t, []string{SettingMilitaryTime, SettingClockDivider, SettingDateFormat, SettingDateSeparator}, res.Applied)
		assert.Empty(t, res.Rejected)
	})

	t.Run("absent keys keep previous values", func(t *testing.T) {
		res := ApplySettings(prev, map[string]any{SettingShowAmPm: AmPmSmall})
		assert.Equal(t, AmPmSmall, res.Config.ShowAmPm)
		assert.Equal(t, prev.Divider, res.Config.Divider)
		assert.Equal(t, prev.DateFormat, res.Config.DateFormat)
	})

	t.Run("unknown and nil keys are ignored", func(t *testing.T) {
		res := ApplySettings(prev, map[string]any{"background_color": "#fff", SettingClockDivider: nil})
		assert.Equal(t, prev, res.Config)
		assert.Empty(t, res.Applied)
		assert.Empty(t, res.Rejected)
	})

	t.Run("weakly typed values decode", func(t *testing.T) {
		res := ApplySettings(prev, map[string]any{SettingLeadingZeroHours: "true", SettingMilitaryTime: 1})
		assert.True(t, res.Config.LeadingZeroHours)
		assert.True(t, res.Config.Military)
	})

	t.Run("invalid enum keeps last good value", func(t *testing.T) {
		res := ApplySettings(prev, map[string]any{SettingShowAmPm: "tiny", SettingMilitaryTime: true})
		assert.Equal(t, prev.ShowAmPm, res.Config.ShowAmPm)
		assert.True(t, res.Config.Military)
		assert.Contains(t, res.Rejected, SettingShowAmPm)
		assert.Equal(t, []string{SettingMilitaryTime}, res.Applied)
	})

	t.Run("undecodable value keeps last good value", func(t *testing.T) {
		res := ApplySettings(prev, map[string]any{SettingMilitaryTime: map[string]any{"nested": true}})
		assert.False(t, res.Config.Military)
		assert.Contains(t, res.Rejected, SettingMilitaryTime)
	})

	t.Run("empty divider rejected", func(t *testing.T) {
		res := ApplySettings(prev, map[string]any{SettingClockDivider: ""})
		assert.Equal(t, ":", res.Config.Divider)
		assert.Contains(t, res.Rejected[SettingClockDivider], "must not be empty")
	})

	t.Run("does not mutate previous config", func(t *testing.T) {
		before := prev
		ApplySettings(prev, map[string]any{SettingMonthFormat: MonthNumeric})
		assert.Equal(t, before, prev)
	})
}

func TestValidateClockConfig(t *testing.T) {
	require.NoError(t, ValidateClockConfig(DefaultClockConfig()))

	bad := DefaultClockConfig()
	bad.MonthFormat = "roman"
	err := ValidateClockConfig(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "month_format")
}

func TestClockConfig_Settings(t *testing.T) {
	s := DefaultClockConfig().Settings()
	assert.Equal(t, ":", s[SettingClockDivider])
	assert.Equal(t, false, s[SettingMilitaryTime])

	res := ApplySettings(ClockConfig{}, s)
	assert.Equal(t, DefaultClockConfig(), res.Config)
}
