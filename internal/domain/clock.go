package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// WallClock reads a clockwork.Clock as wall milliseconds in a fixed zone.
// Production code uses the real clock; tests inject a fake for deterministic output.
type WallClock struct {
	clock clockwork.Clock
	loc   *time.Location
}

// NewWallClock wraps c. A nil clock means real time, a nil location means time.Local.
func NewWallClock(c clockwork.Clock, loc *time.Location) WallClock {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	return WallClock{clock: c, loc: loc}
}

// Clock returns the underlying time source.
func (w WallClock) Clock() clockwork.Clock {
	return w.clock
}

// NowMillis returns the current wall milliseconds.
func (w WallClock) NowMillis() int64 {
	return WallMillis(w.clock.Now().In(w.loc))
}

// WallMillis converts t to wall milliseconds using t's own zone.
func WallMillis(t time.Time) int64 {
	_, offset := t.Zone()
	return t.UnixMilli() + int64(offset)*1000
}

// WallTime converts wall milliseconds back to a time whose UTC fields are the
// wall clock reading.
func WallTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
