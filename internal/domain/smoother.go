package domain

const minuteMs = 60_000

// DefaultSkewToleranceMinutes is the widest whole-minute disagreement that
// still resolves to the minute nearest the local clock.
const DefaultSkewToleranceMinutes = 30

// Reconcile returns the offset to add to localMs so that the displayed clock
// sits on the authoritative minute of serverMs while keeping the local
// sub-minute phase. Both arguments are wall milliseconds.
//
// With r = localMs mod 60000 the result always satisfies
// (localMs + offset) mod 60000 == r. The minute is chosen as
// minuteDiff = round((localMinute - serverMinute) / 60000), which is the
// authoritative minute nearest local time. Rounding on the local minute
// boundary keeps a phase of 30s or more from landing a minute ahead.
// When |minuteDiff| exceeds toleranceMinutes the authoritative minute is
// taken as is. A negative tolerance is treated as zero.
func Reconcile(serverMs, localMs int64, toleranceMinutes int64) int64 {
	phase := floorMod(localMs, minuteMs)
	serverMinute := serverMs - floorMod(serverMs, minuteMs)
	minuteDiff := roundDiv(localMs-phase-serverMinute, minuteMs)

	if toleranceMinutes < 0 {
		toleranceMinutes = 0
	}
	if abs64(minuteDiff) > toleranceMinutes {
		minuteDiff = 0
	}

	adjusted := serverMinute + minuteDiff*minuteMs + phase
	return adjusted - localMs
}

// Step moves current toward target by at most maxStep, never past it.
// A non-positive maxStep jumps straight to target.
func Step(current, target, maxStep int64) int64 {
	delta := target - current
	if maxStep <= 0 || abs64(delta) <= maxStep {
		return target
	}
	if delta > 0 {
		return current + maxStep
	}
	return current - maxStep
}

// Smoother holds the displayed and target offsets. The zero value free-runs
// on local time with no offset. It is not safe for concurrent use.
type Smoother struct {
	current     int64
	target      int64
	established bool
}

// SetTarget records a new target offset. The first target ever set is
// applied immediately so startup does not crawl from zero.
func (s *Smoother) SetTarget(offset int64) {
	s.target = offset
	if !s.established {
		s.current = offset
		s.established = true
	}
}

// Tick advances the displayed offset by one bounded step and returns it.
func (s *Smoother) Tick(maxStep int64) int64 {
	s.current = Step(s.current, s.target, maxStep)
	return s.current
}

// Current returns the displayed offset in milliseconds.
func (s *Smoother) Current() int64 { return s.current }

// Target returns the offset being converged on.
func (s *Smoother) Target() int64 { return s.target }

// Established reports whether any authoritative signal has been applied.
func (s *Smoother) Established() bool { return s.established }

// Converged reports whether the displayed offset has reached the target.
func (s *Smoother) Converged() bool { return s.current == s.target }

func floorMod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// roundDiv divides a by b (b > 0) rounding half away from zero.
func roundDiv(a, b int64) int64 {
	if a >= 0 {
		return (a + b/2) / b
	}
	return -((-a + b/2) / b)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
