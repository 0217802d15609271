package domain

import (
	"fmt"
	"slices"
	"strconv"
	"time"
)

// Recognised date format literals.
const (
	DateMonthDayYear    = "MM/DD/YYYY"
	DateDayMonthYear    = "DD/MM/YYYY"
	DateISO             = "YYYY-MM-DD"
	DateDotted          = "YYYY.MM.DD"
	DateShortMonth      = "MMM DD YYYY"
	DateLongMonth       = "MMMM DD YYYY"
	DateLongMonthOrd    = "MMMM DDth YYYY"
	DateDayLongMonth    = "DD MMMM YYYY"
	DefaultDateFallback = DateMonthDayYear
)

// DateFormats lists every supported date format literal.
var DateFormats = []string{
	DateMonthDayYear,
	DateDayMonthYear,
	DateISO,
	DateDotted,
	DateShortMonth,
	DateLongMonth,
	DateLongMonthOrd,
	DateDayLongMonth,
}

// FormatTime renders the clock fields of t. Only the wall fields of t are
// read, so callers pass a time already in the display zone (see WallTime).
func FormatTime(t time.Time, cfg ClockConfig) TimeData {
	h := t.Hour()
	minutes := pad2(t.Minute())

	if cfg.Military {
		hours := pad2(h)
		return TimeData{
			Hours:     hours,
			Minutes:   minutes,
			Formatted: hours + cfg.Divider + minutes,
		}
	}

	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	hours := strconv.Itoa(h12)
	if cfg.LeadingZeroHours {
		hours = pad2(h12)
	}
	amPm := "AM"
	if h >= 12 {
		amPm = "PM"
	}

	formatted := hours + cfg.Divider + minutes
	// "small" is sized by the renderer; the suffix is still part of the text.
	if cfg.ShowAmPm != AmPmOff {
		formatted += " " + amPm
	}

	return TimeData{
		Hours:     hours,
		Minutes:   minutes,
		AmPm:      amPm,
		Formatted: formatted,
	}
}

// FormatDate renders t using one of the DateFormats literals. Unknown formats
// fall back to MM/DD/YYYY. monthFormat only affects the MMMM patterns and
// separator only the numeric ones.
func FormatDate(t time.Time, format, monthFormat, separator string) string {
	dayNum := t.Day()
	day := pad2(dayNum)
	month := pad2(int(t.Month()))
	year := strconv.Itoa(t.Year())

	switch format {
	case DateDayMonthYear:
		return day + separator + month + separator + year
	case DateISO, DateDotted:
		return year + separator + month + separator + day
	case DateShortMonth:
		return fmt.Sprintf("%s %d %s", t.Month().String()[:3], dayNum, year)
	case DateLongMonth:
		return fmt.Sprintf("%s %d %s", monthDisplay(t.Month(), monthFormat), dayNum, year)
	case DateLongMonthOrd:
		return fmt.Sprintf("%s %d%s %s", monthDisplay(t.Month(), monthFormat), dayNum, OrdinalSuffix(dayNum), year)
	case DateDayLongMonth:
		return fmt.Sprintf("%d %s %s", dayNum, monthDisplay(t.Month(), monthFormat), year)
	default:
		return month + separator + day + separator + year
	}
}

// DayName returns the full English weekday of t.
func DayName(t time.Time) string {
	return t.Weekday().String()
}

// OrdinalSuffix returns the English ordinal suffix for day (1st, 2nd, 11th).
func OrdinalSuffix(day int) string {
	mod10, mod100 := day%10, day%100
	switch {
	case mod10 == 1 && mod100 != 11:
		return "st"
	case mod10 == 2 && mod100 != 12:
		return "nd"
	case mod10 == 3 && mod100 != 13:
		return "rd"
	default:
		return "th"
	}
}

// IsDateFormat reports whether format is one of the recognised literals.
func IsDateFormat(format string) bool {
	return slices.Contains(DateFormats, format)
}

func monthDisplay(m time.Month, monthFormat string) string {
	switch monthFormat {
	case MonthNumeric:
		return pad2(int(m))
	case MonthAbbreviated:
		return m.String()[:3]
	default:
		return m.String()
	}
}

func pad2(n int) string {
	if n >= 0 && n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
