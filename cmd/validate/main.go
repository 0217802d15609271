// Command validate performs offline consistency checks of the clock engine's
// calendar tables and formatters: zodiac coverage over a leap year, ordinal
// suffixes, every date format for a reference date, offset reconciliation,
// and optionally a settings file.
//
// Usage:
//
//	go run ./cmd/validate [-settings /etc/clock/settings.toml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/clock-sync-engine/internal/adapter/settingsfile"
	"github.com/couchcryptid/clock-sync-engine/internal/domain"
)

// referenceDate is a Friday in Capricorn.
var referenceDate = time.Date(2025, time.December, 26, 14, 5, 0, 0, time.UTC)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	settingsPath := flag.String("settings", "", "optional TOML settings file to validate")
	flag.Parse()

	if code := run(*settingsPath); code != 0 {
		os.Exit(code)
	}
}

func run(settingsPath string) int {
	fmt.Println("=== Clock Engine Validation ===")
	fmt.Println()

	phases := []*phase{
		validateZodiacCoverage(),
		validateOrdinals(),
		validateDateFormats(),
		validateReconcile(),
	}
	if settingsPath != "" {
		phases = append(phases, validateSettingsFile(settingsPath))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Zodiac Coverage ──
// Every date of a leap year falls in exactly one sign and every sign is used.

func validateZodiacCoverage() *phase {
	p := &phase{name: "Phase 1: Zodiac Coverage (366 dates)"}

	used := map[string]int{}
	day := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	for ; day.Year() == 2024; day = day.AddDate(0, 0, 1) {
		var matches []string
		for _, sign := range domain.ZodiacSigns {
			if sign.Contains(int(day.Month()), day.Day()) {
				matches = append(matches, sign.Name)
			}
		}
		if len(matches) != 1 {
			p.errorf("%s: matched %d signs %v", day.Format(time.DateOnly), len(matches), matches)
			continue
		}
		if got := domain.ZodiacOf(day).Name; got != matches[0] {
			p.errorf("%s: resolver returned %s, table says %s", day.Format(time.DateOnly), got, matches[0])
		}
		used[matches[0]]++
	}

	for _, sign := range domain.ZodiacSigns {
		if used[sign.Name] == 0 {
			p.errorf("%s: no date resolves to it", sign.Name)
		}
	}
	return p
}

// ── Phase 2: Ordinal Suffixes ──

func validateOrdinals() *phase {
	p := &phase{name: "Phase 2: Ordinal Suffixes (1-31)"}
	for d := 1; d <= 31; d++ {
		want := "th"
		if d < 11 || d > 13 {
			switch d % 10 {
			case 1:
				want = "st"
			case 2:
				want = "nd"
			case 3:
				want = "rd"
			}
		}
		if got := domain.OrdinalSuffix(d); got != want {
			p.errorf("day %d: expected %q, got %q", d, want, got)
		}
	}
	return p
}

// ── Phase 3: Date Formats ──

var referenceFormats = map[string]string{
	domain.DateMonthDayYear: "12/26/2025",
	domain.DateDayMonthYear: "26/12/2025",
	domain.DateISO:          "2025/12/26",
	domain.DateDotted:       "2025/12/26",
	domain.DateShortMonth:   "Dec 26 2025",
	domain.DateLongMonth:    "December 26 2025",
	domain.DateLongMonthOrd: "December 26th 2025",
	domain.DateDayLongMonth: "26 December 2025",
}

func validateDateFormats() *phase {
	p := &phase{name: "Phase 3: Date Formats (reference date)"}

	if len(domain.DateFormats) != len(referenceFormats) {
		p.errorf("expected %d formats, engine lists %d", len(referenceFormats), len(domain.DateFormats))
	}
	for _, f := range domain.DateFormats {
		want, ok := referenceFormats[f]
		if !ok {
			p.errorf("format %q has no reference rendering", f)
			continue
		}
		if got := domain.FormatDate(referenceDate, f, domain.MonthFull, "/"); got != want {
			p.errorf("format %q: expected %q, got %q", f, want, got)
		}
	}
	if got := domain.DayName(referenceDate); got != "Friday" {
		p.errorf("day name: expected Friday, got %q", got)
	}
	if got := domain.FormatDate(referenceDate, "bogus", domain.MonthFull, "/"); got != "12/26/2025" {
		p.errorf("unknown format fallback: expected 12/26/2025, got %q", got)
	}
	return p
}

// ── Phase 4: Offset Reconciliation ──
// Inside the skew window a signal resolves to the nearest local minute and
// leaves the display alone; past it the display lands on the server minute.
// Either way the local second phase is preserved.

func validateReconcile() *phase {
	p := &phase{name: "Phase 4: Offset Reconciliation"}

	clock := clockwork.NewFakeClockAt(referenceDate.Add(37 * time.Second))
	local := domain.WallMillis(clock.Now())
	window := time.Duration(domain.DefaultSkewToleranceMinutes) * time.Minute
	for _, skew := range []time.Duration{0, 20 * time.Second, -45 * time.Second, 3 * time.Minute, 29 * time.Minute, -2 * time.Hour, 45 * time.Minute} {
		server := local + skew.Milliseconds()
		offset := domain.Reconcile(server, local, domain.DefaultSkewToleranceMinutes)
		shown := local + offset

		if offset%60_000 != 0 {
			p.errorf("skew %s: offset %dms does not preserve the local second", skew, offset)
		}
		if skew.Abs() < window {
			if offset != 0 {
				p.errorf("skew %s: offset %dms inside the skew window", skew, offset)
			}
			continue
		}
		if d := shown - server; d > 60_000 || d < -60_000 {
			p.errorf("skew %s: display lands %dms from server time", skew, d)
		}
	}
	return p
}

// ── Phase 5: Settings File ──

func validateSettingsFile(path string) *phase {
	p := &phase{name: "Phase 5: Settings File"}

	raw, err := settingsfile.New(path, slog.Default()).ReadSettings(context.Background())
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	if raw == nil {
		p.errorf("%s: file not found", path)
		return p
	}

	res := domain.ApplySettings(domain.DefaultClockConfig(), raw)
	for id, reason := range res.Rejected {
		p.errorf("%s: %s", id, reason)
	}
	if f := res.Config.DateFormat; !domain.IsDateFormat(f) {
		p.errorf("date_format %q is not a recognised format (renders as %s)", f, domain.DefaultDateFallback)
	}
	fmt.Printf("  Settings: %d applied from %s\n", len(res.Applied), path)
	return p
}
