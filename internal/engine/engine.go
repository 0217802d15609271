// Package engine keeps the displayed clock in step with authoritative time
// signals and publishes formatted display state to listeners.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/clock-sync-engine/internal/domain"
	"github.com/couchcryptid/clock-sync-engine/internal/observability"
)

// ErrStopped is returned by Init after Stop.
var ErrStopped = errors.New("clock engine stopped")

// SettingsReader supplies the stored settings at startup. A nil mapping
// means nothing has been stored yet.
type SettingsReader interface {
	ReadSettings(ctx context.Context) (map[string]any, error)
}

// SettingsWriter is implemented by settings stores that persist pushed settings.
type SettingsWriter interface {
	SaveSettings(ctx context.Context, settings map[string]any) error
}

// Options tune the engine.
type Options struct {
	TickInterval         time.Duration // non-positive means 1s
	MaxStep              time.Duration // smoothing step per tick; non-positive jumps straight to the target
	SkewToleranceMinutes int
	Location             *time.Location // nil means time.Local
}

// DefaultOptions returns a 1s tick, a 500ms smoothing step and a 30-minute
// skew tolerance.
func DefaultOptions() Options {
	return Options{
		TickInterval:         time.Second,
		MaxStep:              500 * time.Millisecond,
		SkewToleranceMinutes: domain.DefaultSkewToleranceMinutes,
	}
}

// Engine is the clock synchronization engine. Construct it with New, start
// the ticker with Init and release it with Stop.
type Engine struct {
	clock     domain.WallClock
	settings  SettingsReader
	fonts     domain.FontLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options
	listeners *registry

	mu             sync.Mutex
	cfg            domain.ClockConfig
	settingsPushed bool
	smoother       domain.Smoother
	lastSignal     time.Time
	state          domain.DisplayState
	fontLoading    string

	// emitMu keeps listener deliveries in Seq order.
	emitMu sync.Mutex

	// persistMu serializes the read-merge-write of the settings store.
	persistMu sync.Mutex

	lifeMu  sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool
	ready   atomic.Bool
	wg      sync.WaitGroup
}

// New creates an engine reading time from clock. settings and fonts may be nil.
func New(clock clockwork.Clock, settings SettingsReader, fonts domain.FontLoader, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Engine {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	cfg := domain.DefaultClockConfig()
	return &Engine{
		clock:     domain.NewWallClock(clock, opts.Location),
		settings:  settings,
		fonts:     fonts,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
		listeners: newRegistry(),
		cfg:       cfg,
		state: domain.DisplayState{
			Time:     domain.DefaultTimeData,
			Settings: cfg,
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Init loads stored settings (unless settings were already pushed), renders
// the first state and starts the ticker. Calling Init again is a no-op.
func (e *Engine) Init(ctx context.Context) error {
	e.lifeMu.Lock()
	if e.stopped {
		e.lifeMu.Unlock()
		return ErrStopped
	}
	if e.started {
		e.lifeMu.Unlock()
		return nil
	}
	e.started = true
	e.lifeMu.Unlock()

	e.mu.Lock()
	pushed := e.settingsPushed
	e.mu.Unlock()

	if e.settings != nil && !pushed {
		raw, err := e.settings.ReadSettings(ctx)
		switch {
		case err != nil:
			e.logger.Warn("read stored settings failed, using defaults", "error", err)
		case raw != nil:
			e.applySettings(raw)
		}
	}

	e.mu.Lock()
	ch := e.renderLocked(e.clock.NowMillis())
	ch.forced = true
	e.commitLocked(ch)

	e.lifeMu.Lock()
	if e.stopped {
		e.lifeMu.Unlock()
		return ErrStopped
	}
	e.ready.Store(true)
	e.wg.Add(1)
	e.lifeMu.Unlock()
	go e.tickLoop()

	e.logger.Info("clock engine started",
		"tick_interval", e.opts.TickInterval,
		"max_step", e.opts.MaxStep,
		"skew_tolerance_minutes", e.opts.SkewToleranceMinutes,
	)
	return nil
}

// Stop halts the ticker and waits for background font loads. It is safe to
// call more than once.
func (e *Engine) Stop() {
	e.lifeMu.Lock()
	if e.stopped {
		e.lifeMu.Unlock()
		return
	}
	e.stopped = true
	e.lifeMu.Unlock()

	e.cancel()
	e.wg.Wait()
	e.ready.Store(false)
	e.logger.Info("clock engine stopped")
}

// CheckReadiness returns nil once the engine has been initialized.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("clock engine not initialized")
	}
	return nil
}

// Dispatch routes an inbound envelope to the matching handler.
func (e *Engine) Dispatch(ctx context.Context, env domain.Envelope) error {
	switch env.Type {
	case domain.EventTime:
		sig, err := domain.ParseTimeSignal(env.Payload)
		if err != nil {
			e.metrics.SignalErrors.Inc()
			return err
		}
		e.HandleTimeSignal(sig)
		return nil
	case domain.EventSettings:
		raw, err := domain.ParseSettings(env.Payload)
		if err != nil {
			e.metrics.SettingsUpdates.WithLabelValues("invalid").Inc()
			return err
		}
		e.HandleSettings(ctx, raw)
		return nil
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownEvent, env.Type)
	}
}

// HandleTimeSignal applies an authoritative time signal. Structured signals
// retarget the offset; legacy display strings are recorded as announced text
// while the clock keeps rendering from local time.
func (e *Engine) HandleTimeSignal(sig domain.TimeSignal) {
	e.mu.Lock()
	now := e.clock.NowMillis()
	e.lastSignal = e.clock.Clock().Now()

	if sig.IsLegacy() {
		e.state.Announced = sig.Display
		e.metrics.SignalsReceived.WithLabelValues("legacy").Inc()
	} else {
		target := domain.Reconcile(sig.WallMillis(), now, int64(e.opts.SkewToleranceMinutes))
		first := !e.smoother.Established()
		e.smoother.SetTarget(target)
		e.metrics.SignalsReceived.WithLabelValues("structured").Inc()
		e.logger.Debug("time signal applied",
			"target_offset_ms", target,
			"current_offset_ms", e.smoother.Current(),
			"first", first,
		)
	}

	ch := e.renderLocked(now)
	ch.forced = true
	e.commitLocked(ch)
}

// HandleSettings overlays a settings mapping onto the current configuration
// and persists the applied keys when the settings store supports writes.
func (e *Engine) HandleSettings(ctx context.Context, raw map[string]any) domain.SettingsResult {
	res := e.applySettings(raw)
	if len(res.Applied) > 0 {
		e.persistSettings(ctx, res)
	}
	return res
}

// ReloadSettings applies settings read back from the settings store itself,
// such as an edited settings file. Nothing is written back.
func (e *Engine) ReloadSettings(raw map[string]any) domain.SettingsResult {
	return e.applySettings(raw)
}

// persistSettings merges the applied keys into the stored document. Keys the
// engine does not understand are left as they are.
func (e *Engine) persistSettings(ctx context.Context, res domain.SettingsResult) {
	w, ok := e.settings.(SettingsWriter)
	if !ok {
		return
	}

	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	stored, err := e.settings.ReadSettings(ctx)
	if err != nil {
		e.logger.Warn("read stored settings failed, not persisting", "error", err)
		return
	}
	merged := make(map[string]any, len(stored)+len(res.Applied))
	maps.Copy(merged, stored)
	values := res.Config.Settings()
	for _, id := range res.Applied {
		merged[id] = values[id]
	}
	if err := w.SaveSettings(ctx, merged); err != nil {
		e.logger.Warn("persist settings failed", "error", err)
	}
}

// Snapshot returns the current display state.
func (e *Engine) Snapshot() domain.DisplayState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// On registers fn for event. Listeners run synchronously in registration
// order and must not call back into the engine's handlers.
func (e *Engine) On(event string, fn Listener) Handle {
	return e.listeners.add(event, fn)
}

// Off removes a listener. It reports whether the handle was registered.
func (e *Engine) Off(h Handle) bool {
	return e.listeners.remove(h)
}

// SubscribeDisplay registers fn for every published display state and
// returns a function that removes it.
func (e *Engine) SubscribeDisplay(fn Listener) (cancel func()) {
	h := e.On(EventDisplay, fn)
	return func() { e.Off(h) }
}

func (e *Engine) applySettings(raw map[string]any) domain.SettingsResult {
	e.mu.Lock()
	e.settingsPushed = true
	res := domain.ApplySettings(e.cfg, raw)
	for id, reason := range res.Rejected {
		e.logger.Warn("setting rejected, keeping last value", "setting", id, "reason", reason)
	}
	if len(res.Rejected) > 0 {
		e.metrics.SettingsUpdates.WithLabelValues("rejected").Add(float64(len(res.Rejected)))
	}
	e.metrics.SettingsUpdates.WithLabelValues("applied").Add(float64(len(res.Applied)))

	changed := res.Config != e.cfg
	e.cfg = res.Config
	e.state.Settings = res.Config

	ref := res.Config.FontSelection
	loadFont := ref != "" && ref != e.fontLoading && (e.state.Font == nil || e.state.Font.Ref != ref)
	if loadFont {
		e.fontLoading = ref
	}

	ch := e.renderLocked(e.clock.NowMillis())
	ch.settings = changed
	e.commitLocked(ch)

	if loadFont {
		e.loadFontAsync(ref)
	}
	return res
}

func (e *Engine) loadFontAsync(ref string) {
	if e.fonts == nil {
		e.clearFontLoading(ref)
		return
	}

	e.lifeMu.Lock()
	if e.stopped {
		e.lifeMu.Unlock()
		e.clearFontLoading(ref)
		return
	}
	e.wg.Add(1)
	e.lifeMu.Unlock()

	go func() {
		defer e.wg.Done()
		font, err := e.fonts.LoadFont(e.ctx, ref)

		e.mu.Lock()
		if e.fontLoading == ref {
			e.fontLoading = ""
		}
		if err != nil {
			e.mu.Unlock()
			e.metrics.FontLoads.WithLabelValues("error").Inc()
			e.logger.Error("load clock font failed", "font", ref, "error", err)
			return
		}
		if e.cfg.FontSelection != ref {
			e.mu.Unlock()
			e.metrics.FontLoads.WithLabelValues("stale").Inc()
			return
		}
		e.metrics.FontLoads.WithLabelValues("success").Inc()
		e.logger.Info("clock font loaded", "font", font.Name, "source", font.Source)
		e.state.Font = &font
		e.commitLocked(changes{font: true})
	}()
}

func (e *Engine) clearFontLoading(ref string) {
	e.mu.Lock()
	if e.fontLoading == ref {
		e.fontLoading = ""
	}
	e.mu.Unlock()
}

func (e *Engine) tickLoop() {
	defer e.wg.Done()
	ticker := e.clock.Clock().NewTicker(e.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			e.tick()
		case <-e.ctx.Done():
			return
		}
	}
}

func (e *Engine) tick() {
	e.mu.Lock()
	e.smoother.Tick(e.opts.MaxStep.Milliseconds())
	ch := e.renderLocked(e.clock.NowMillis())
	e.commitLocked(ch)
}

// changes records which parts of the display state a recompute replaced.
type changes struct {
	time, date, sign, settings, font bool
	forced                           bool
}

func (c changes) changed() bool {
	return c.time || c.date || c.sign || c.settings || c.font || c.forced
}

// renderLocked recomputes the derived fields for local wall time nowMs plus
// the displayed offset. e.mu must be held.
func (e *Engine) renderLocked(nowMs int64) changes {
	shown := domain.WallTime(nowMs + e.smoother.Current())
	td, dd, sign := domain.Render(shown, e.cfg)

	var ch changes
	if td != e.state.Time {
		e.state.Time = td
		ch.time = true
	}
	if dd != e.state.Date {
		e.state.Date = dd
		ch.date = true
	}
	if e.state.Constellation == nil || e.state.Constellation.Name != sign.Name {
		e.state.Constellation = &sign
		ch.sign = true
	}
	e.state.Sync = domain.SyncState{
		OffsetMs:   e.smoother.Current(),
		TargetMs:   e.smoother.Target(),
		Synced:     e.smoother.Established(),
		LastSignal: e.lastSignal,
	}
	e.metrics.OffsetMs.Set(float64(e.smoother.Current()))
	e.metrics.TargetOffsetMs.Set(float64(e.smoother.Target()))
	return ch
}

// commitLocked stamps and publishes the state when anything changed. It must
// be called with e.mu held and always releases it.
func (e *Engine) commitLocked(ch changes) {
	if !ch.changed() {
		e.mu.Unlock()
		return
	}
	e.state.Seq++
	e.state.UpdatedAt = e.clock.Clock().Now()
	state := e.state

	e.emitMu.Lock()
	e.mu.Unlock()
	defer e.emitMu.Unlock()

	e.metrics.DisplayUpdates.Inc()
	if ch.time {
		e.fire(EventTimeData, state)
	}
	if ch.date {
		e.fire(EventDateData, state)
	}
	if ch.sign {
		e.fire(EventConstellation, state)
	}
	if ch.settings {
		e.fire(EventSettings, state)
	}
	if ch.font {
		e.fire(EventFont, state)
	}
	e.fire(EventDisplay, state)
}

func (e *Engine) fire(event string, state domain.DisplayState) {
	for _, fn := range e.listeners.snapshot(event) {
		fn(state)
	}
}
