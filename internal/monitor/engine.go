package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FraudShield1/homeai-bot/internal/alert"
	"github.com/FraudShield1/homeai-bot/internal/entity"
	"github.com/FraudShield1/homeai-bot/internal/scene"
)

// SnapshotProvider supplies a point-in-time view of all entity states.
type SnapshotProvider interface {
	FetchAllStates(ctx context.Context) ([]entity.State, error)
}

// SceneActivator triggers scene activations from the presence hook.
type SceneActivator interface {
	Activate(ctx context.Context, name, source string) *scene.ActivationResult
}

// PreferenceStore reads per-user preference flags.
type PreferenceStore interface {
	GetBool(ctx context.Context, userID int64, key string, fallback bool) bool
}

// MetricsWriter receives time-series measurements from the engine.
type MetricsWriter interface {
	WriteTemperature(entityID string, celsius float64)
	WriteMonitorTick(duration time.Duration, entities int)
}

// Logger defines the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds the tunable thresholds and cooldowns for the engine.
type Config struct {
	Interval time.Duration

	DoorOpenThreshold time.Duration
	DoorCooldown      time.Duration

	MotionAlertsEnabled bool
	MotionCooldown      time.Duration

	WaterLeakAlertsEnabled bool

	TemperatureLow      float64
	TemperatureHigh     float64
	TemperatureCooldown time.Duration

	OfflineCooldown         time.Duration
	OfflineSummaryThreshold int
	OfflineSummaryCooldown  time.Duration
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		Interval:                60 * time.Second,
		DoorOpenThreshold:       30 * time.Minute,
		DoorCooldown:            time.Hour,
		MotionAlertsEnabled:     true,
		MotionCooldown:          5 * time.Minute,
		WaterLeakAlertsEnabled:  true,
		TemperatureLow:          10,
		TemperatureHigh:         30,
		TemperatureCooldown:     time.Hour,
		OfflineCooldown:         30 * time.Minute,
		OfflineSummaryThreshold: 5,
		OfflineSummaryCooldown:  time.Hour,
	}
}

// Status is a thread-safe snapshot of the engine's state for the API.
type Status struct {
	Running         bool      `json:"running"`
	LastRun         time.Time `json:"last_run"`
	LastError       string    `json:"last_error,omitempty"`
	Ticks           int64     `json:"ticks"`
	AlertsSent      int64     `json:"alerts_sent"`
	OpenEntities    int       `json:"open_entities"`
	ActiveCooldowns int       `json:"active_cooldowns"`
	TrackedEntities int       `json:"tracked_entities"`
}

// Engine runs a recurring evaluation over the live entity snapshot and
// emits alerts for conditions that persist or newly appear.
//
// All temporal state (previous snapshot, open-since tracking, cooldown
// expiries) has a single writer, the evaluation cycle; external reads
// go through Status. Ticks run to completion: a slow evaluation delays
// the next one, it never overlaps it.
type Engine struct {
	cfg       Config
	snapshots SnapshotProvider
	sink      alert.Sink
	logger    Logger

	scenes  SceneActivator
	prefs   PreferenceStore
	metrics MetricsWriter

	// statusFn, when set, receives a Status snapshot after every
	// completed cycle for delivery outside the process (MQTT).
	statusFn func(Status)

	// now is replaceable for tests.
	now func() time.Time

	mu        sync.Mutex
	previous  map[string]entity.State
	openSince map[string]time.Time
	cooldowns map[string]time.Time
	lastRun   time.Time
	lastErr   string
	running   bool

	ticks      atomic.Int64
	alertsSent atomic.Int64

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewEngine creates a monitoring engine. The snapshot provider and
// alert sink are required; scene activation, preferences, and metrics
// are attached with the setters below.
func NewEngine(cfg Config, snapshots SnapshotProvider, sink alert.Sink, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Engine{
		cfg:       cfg,
		snapshots: snapshots,
		sink:      sink,
		logger:    logger,
		now:       time.Now,
		previous:  make(map[string]entity.State),
		openSince: make(map[string]time.Time),
		cooldowns: make(map[string]time.Time),
		done:      make(chan struct{}),
	}
}

// SetSceneActivator attaches the scene engine for the presence hook.
func (e *Engine) SetSceneActivator(s SceneActivator) { e.scenes = s }

// SetPreferenceStore attaches the preference store for presence gating.
func (e *Engine) SetPreferenceStore(p PreferenceStore) { e.prefs = p }

// SetMetricsWriter attaches a time-series writer for temperature
// readings and tick timings.
func (e *Engine) SetMetricsWriter(m MetricsWriter) { e.metrics = m }

// SetStatusPublisher attaches a callback invoked with a status
// snapshot after every completed cycle. Must be called before Start.
func (e *Engine) SetStatusPublisher(fn func(Status)) { e.statusFn = fn }

// Start begins the evaluation loop. Must be called once; call Stop to
// shut down.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		e.logger.Warn("monitor already running")
		return
	}
	e.running = true
	e.mu.Unlock()

	e.wg.Add(1)
	go e.loop(ctx)
	e.logger.Info("monitor started", "interval", e.cfg.Interval.String())
}

// Stop gracefully stops the loop, letting an in-flight evaluation
// finish so the previous-state map stays consistent.
// Safe to call multiple times (uses sync.Once).
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.done)
		e.wg.Wait()

		e.mu.Lock()
		e.running = false
		e.mu.Unlock()

		e.logger.Info("monitor stopped")
	})
}

// Status returns a consistent snapshot of the engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

// statusLocked builds a Status snapshot. Caller must hold mu.
func (e *Engine) statusLocked() Status {
	return Status{
		Running:         e.running,
		LastRun:         e.lastRun,
		LastError:       e.lastErr,
		Ticks:           e.ticks.Load(),
		AlertsSent:      e.alertsSent.Load(),
		OpenEntities:    len(e.openSince),
		ActiveCooldowns: e.activeCooldownsLocked(),
		TrackedEntities: len(e.previous),
	}
}

func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	// Evaluate once immediately so a fresh start surfaces existing
	// conditions without waiting for the first tick.
	e.evaluate(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case <-ticker.C:
			e.evaluate(ctx)
		}
	}
}

// evaluate runs one full check cycle. On snapshot failure the cycle is
// skipped and the previous-state map is left untouched so the next
// successful cycle sees real transitions, not a gap.
func (e *Engine) evaluate(ctx context.Context) {
	started := e.now()

	states, err := e.snapshots.FetchAllStates(ctx)
	if err != nil {
		e.logger.Error("snapshot fetch failed, skipping cycle", "error", err)
		e.mu.Lock()
		e.lastErr = err.Error()
		e.mu.Unlock()
		return
	}

	e.mu.Lock()

	e.checkDoorsWindows(ctx, states)
	e.checkMotion(ctx, states)
	e.checkWaterLeaks(ctx, states)
	e.checkTemperature(ctx, states)
	e.checkOffline(ctx, states)

	previous := make(map[string]entity.State, len(states))
	for _, st := range states {
		previous[st.EntityID] = st
	}
	e.previous = previous

	e.pruneCooldownsLocked()
	e.lastRun = e.now()
	e.lastErr = ""
	e.ticks.Add(1)

	if e.metrics != nil {
		e.metrics.WriteMonitorTick(e.now().Sub(started), len(states))
	}

	status := e.statusLocked()
	e.mu.Unlock()

	if e.statusFn != nil {
		e.statusFn(status)
	}
}

// emit delivers an alert to the sink, stamping the timestamp and a
// default severity. Delivery is fire-and-forget.
func (e *Engine) emit(ctx context.Context, a alert.Alert) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = e.now()
	}
	if a.Severity == "" {
		a.Severity = alert.SeverityInfo
	}

	if err := e.sink.Notify(ctx, a); err != nil {
		e.logger.Warn("alert delivery failed", "type", string(a.Type), "error", err)
	}
	e.alertsSent.Add(1)

	e.logger.Debug("alert emitted", "type", string(a.Type), "entity_id", a.EntityID, "severity", string(a.Severity))
}

// onCooldown reports whether key is suppressed. Caller must hold mu.
func (e *Engine) onCooldown(key string) bool {
	expiry, ok := e.cooldowns[key]
	return ok && e.now().Before(expiry)
}

// setCooldown overwrites the expiry for key. Caller must hold mu.
func (e *Engine) setCooldown(key string, d time.Duration) {
	e.cooldowns[key] = e.now().Add(d)
}

func (e *Engine) pruneCooldownsLocked() {
	now := e.now()
	for key, expiry := range e.cooldowns {
		if now.After(expiry) {
			delete(e.cooldowns, key)
		}
	}
}

func (e *Engine) activeCooldownsLocked() int {
	count := 0
	now := e.now()
	for _, expiry := range e.cooldowns {
		if now.Before(expiry) {
			count++
		}
	}
	return count
}
