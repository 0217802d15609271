package domain

import (
	"context"
	"time"
)

// TimeData is the formatted clock reading.
type TimeData struct {
	Hours     string `json:"hours"`
	Minutes   string `json:"minutes"`
	AmPm      string `json:"amPm"`
	Formatted string `json:"formatted"`
}

// DateData is the formatted calendar reading.
type DateData struct {
	Formatted string `json:"formatted"`
	DayName   string `json:"dayName"`
}

// SyncState describes how the displayed clock relates to the local clock.
type SyncState struct {
	OffsetMs   int64     `json:"offsetMs"`
	TargetMs   int64     `json:"targetMs"`
	Synced     bool      `json:"synced"`
	LastSignal time.Time `json:"lastSignal,omitzero"`
}

// Font is a loaded custom clock font.
type Font struct {
	Ref    string `json:"ref"`    // setting value that selected the font
	Name   string `json:"name"`   // file name without extension
	Source string `json:"source"` // URL the font was fetched from
	Size   int    `json:"size"`
}

// FontLoader fetches a font by its settings reference.
type FontLoader interface {
	LoadFont(ctx context.Context, ref string) (Font, error)
}

// DisplayState is everything a renderer needs. It is replaced wholesale on
// every recompute; consumers re-render instead of diffing.
type DisplayState struct {
	Seq           uint64      `json:"seq"`
	Time          TimeData    `json:"timeData"`
	Date          DateData    `json:"dateData"`
	Constellation *ZodiacSign `json:"currentConstellation"`
	Settings      ClockConfig `json:"settings"`
	Font          *Font       `json:"font,omitempty"`
	Sync          SyncState   `json:"sync"`
	Announced     string      `json:"announced,omitempty"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// DefaultTimeData is shown before the first computation.
var DefaultTimeData = TimeData{Hours: "12", Minutes: "00", AmPm: "AM", Formatted: "12:00 AM"}

// Render derives time, date and constellation for the wall time t.
func Render(t time.Time, cfg ClockConfig) (TimeData, DateData, ZodiacSign) {
	return FormatTime(t, cfg),
		DateData{
			Formatted: FormatDate(t, cfg.DateFormat, cfg.MonthFormat, cfg.DateSeparator),
			DayName:   DayName(t),
		},
		ZodiacOf(t)
}
