// Package domain models the clock widget's time, date, and zodiac state.
//
// # Time Signals
//
// The device host periodically pushes an authoritative time signal. Two shapes
// are accepted:
//
//	"2:05 PM"                                       legacy, pre-formatted string
//	{"utcTime": 1766757900000, "timezoneOffset": 300}  structured
//
// utcTime is epoch milliseconds. timezoneOffset follows the browser
// convention of minutes west of UTC, so the authoritative wall instant is
// utcTime - timezoneOffset*60000. Signals are often minute-granular (seconds
// zeroed), so they are only trusted to the minute.
//
// # Wall Milliseconds
//
// All smoothing math works on "wall milliseconds": epoch milliseconds shifted
// by the zone offset so that the UTC fields of [WallTime] read as the local
// wall clock. This keeps formatting independent of the process time zone.
//
// # Offset Smoothing
//
// [Reconcile] picks the offset that lands the local clock on the
// authoritative minute while preserving the local sub-minute phase
// (seconds and milliseconds into the minute). [Step] moves the displayed
// offset toward that target by at most one step per tick so a running clock
// never visibly jumps. See [Smoother].
//
// Minute rounding is done on the local minute boundary. Within the skew
// tolerance (30 minutes by default) the authoritative minute nearest local
// time is chosen, so a coarse signal never drags the clock back or forward
// a minute. Larger disagreements trust the authoritative minute.
//
// # Date Formats
//
// Exactly eight literal patterns are recognised; anything else renders as
// MM/DD/YYYY:
//
//	MM/DD/YYYY    12-26-2025   (numeric, joined by the date separator)
//	DD/MM/YYYY    26-12-2025
//	YYYY-MM-DD    2025-12-26
//	YYYY.MM.DD    2025-12-26
//	MMM DD YYYY   Dec 26 2025
//	MMMM DD YYYY  December 26 2025  (month follows the month format)
//	MMMM DDth YYYY December 26th 2025
//	DD MMMM YYYY  26 December 2025
//
// # Zodiac
//
// Signs are a static table of contiguous (month, day) intervals covering all
// 366 calendar dates. Capricorn is the only interval that wraps the year end.
package domain
