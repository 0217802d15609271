package domain

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// Setting IDs understood by the clock engine.
const (
	SettingMilitaryTime     = "military_time"
	SettingClockDivider     = "clock_divider"
	SettingShowAmPm         = "show_ampm"
	SettingTimeLayout       = "time_layout"
	SettingLeadingZeroHours = "leading_zero_hours"
	SettingDateFormat       = "date_format"
	SettingMonthFormat      = "month_format"
	SettingDateSeparator    = "date_separator"
	SettingFontSelection    = "font_selection"
)

// AM/PM display modes.
const (
	AmPmNormal = "normal"
	AmPmSmall  = "small"
	AmPmOff    = "off"
)

// Month display modes.
const (
	MonthNumeric     = "numeric"
	MonthAbbreviated = "abbreviated"
	MonthFull        = "full"
)

// ClockConfig is the formatting-relevant slice of the widget settings.
type ClockConfig struct {
	Military         bool   `json:"military_time" mapstructure:"military_time" toml:"military_time"`
	Divider          string `json:"clock_divider" mapstructure:"clock_divider" toml:"clock_divider" validate:"required,max=8"`
	ShowAmPm         string `json:"show_ampm" mapstructure:"show_ampm" toml:"show_ampm" validate:"oneof=normal small off"`
	TimeLayout       string `json:"time_layout" mapstructure:"time_layout" toml:"time_layout" validate:"oneof=inline stacked"`
	LeadingZeroHours bool   `json:"leading_zero_hours" mapstructure:"leading_zero_hours" toml:"leading_zero_hours"`
	DateFormat       string `json:"date_format" mapstructure:"date_format" toml:"date_format" validate:"max=32"`
	MonthFormat      string `json:"month_format" mapstructure:"month_format" toml:"month_format" validate:"oneof=numeric abbreviated full"`
	DateSeparator    string `json:"date_separator" mapstructure:"date_separator" toml:"date_separator" validate:"max=8"`
	FontSelection    string `json:"font_selection,omitempty" mapstructure:"font_selection" toml:"font_selection,omitempty" validate:"max=512"`
}

// DefaultClockConfig mirrors the widget's shipped defaults.
func DefaultClockConfig() ClockConfig {
	return ClockConfig{
		Military:         false,
		Divider:          ":",
		ShowAmPm:         AmPmNormal,
		TimeLayout:       "inline",
		LeadingZeroHours: false,
		DateFormat:       "MMMM DD YYYY",
		MonthFormat:      MonthFull,
		DateSeparator:    "-",
	}
}

// Settings renders the config as a condensed id → value mapping.
func (c ClockConfig) Settings() map[string]any {
	return map[string]any{
		SettingMilitaryTime:     c.Military,
		SettingClockDivider:     c.Divider,
		SettingShowAmPm:         c.ShowAmPm,
		SettingTimeLayout:       c.TimeLayout,
		SettingLeadingZeroHours: c.LeadingZeroHours,
		SettingDateFormat:       c.DateFormat,
		SettingMonthFormat:      c.MonthFormat,
		SettingDateSeparator:    c.DateSeparator,
		SettingFontSelection:    c.FontSelection,
	}
}

var settingsValidator = validator.New(validator.WithRequiredStructEnabled())

// SettingsResult reports how a settings mapping was applied.
type SettingsResult struct {
	Config   ClockConfig
	Applied  []string          // setting IDs taken from the mapping
	Rejected map[string]string // setting ID → reason, last good value kept
}

// ApplySettings overlays raw onto prev. Absent keys keep prev's value; keys
// that fail to decode or validate keep prev's value and are reported in
// Rejected. Unknown keys (the widget has many purely cosmetic settings) are
// ignored.
func ApplySettings(prev ClockConfig, raw map[string]any) SettingsResult {
	next := prev
	res := SettingsResult{Rejected: map[string]string{}}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		field, ok := settingFields[id]
		if !ok || raw[id] == nil {
			continue
		}
		if err := decodeSetting(&next, id, raw[id]); err != nil {
			res.Rejected[id] = err.Error()
			restoreField(&next, prev, field)
			continue
		}
		res.Applied = append(res.Applied, id)
	}

	if err := settingsValidator.Struct(next); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return SettingsResult{Config: prev, Rejected: map[string]string{"*": err.Error()}}
		}
		for _, fe := range verrs {
			restoreField(&next, prev, fe.StructField())
			id := fieldSettings[fe.StructField()]
			res.Rejected[id] = formatValidationError(fe)
			res.Applied = without(res.Applied, id)
		}
	}

	res.Config = next
	return res
}

// ValidateClockConfig checks a complete config.
func ValidateClockConfig(c ClockConfig) error {
	if err := settingsValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, formatValidationError(fe))
			}
			return fmt.Errorf("invalid clock settings: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("validate clock settings: %w", err)
	}
	return nil
}

func decodeSetting(dst *ClockConfig, id string, value any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(map[string]any{id: value}); err != nil {
		return fmt.Errorf("decode %s: %w", id, err)
	}
	return nil
}

func restoreField(dst *ClockConfig, prev ClockConfig, name string) {
	if name == "" {
		return
	}
	dv := reflect.ValueOf(dst).Elem().FieldByName(name)
	if !dv.IsValid() || !dv.CanSet() {
		return
	}
	dv.Set(reflect.ValueOf(prev).FieldByName(name))
}

func formatValidationError(fe validator.FieldError) string {
	id := fieldSettings[fe.StructField()]
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", id, fe.Param())
	case "required":
		return fmt.Sprintf("%s must not be empty", id)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", id, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", id, fe.Tag())
	}
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// settingFields maps setting IDs to ClockConfig field names.
var settingFields, fieldSettings = func() (map[string]string, map[string]string) {
	byID := map[string]string{}
	byField := map[string]string{}
	t := reflect.TypeOf(ClockConfig{})
	for i := range t.NumField() {
		f := t.Field(i)
		id := f.Tag.Get("mapstructure")
		byID[id] = f.Name
		byField[f.Name] = id
	}
	return byID, byField
}()
