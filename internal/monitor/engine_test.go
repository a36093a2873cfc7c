package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/FraudShield1/homeai-bot/internal/alert"
	"github.com/FraudShield1/homeai-bot/internal/entity"
	"github.com/FraudShield1/homeai-bot/internal/scene"
)

type captureSink struct {
	mu     sync.Mutex
	alerts []alert.Alert
}

func (c *captureSink) Notify(_ context.Context, a alert.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, a)
	return nil
}

func (c *captureSink) all() []alert.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]alert.Alert(nil), c.alerts...)
}

func (c *captureSink) ofType(t alert.Type) []alert.Alert {
	var out []alert.Alert
	for _, a := range c.all() {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

type fakeSnapshots struct {
	mu     sync.Mutex
	states []entity.State
	err    error
}

func (f *fakeSnapshots) FetchAllStates(context.Context) ([]entity.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]entity.State(nil), f.states...), nil
}

func (f *fakeSnapshots) set(states []entity.State, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = states
	f.err = err
}

// fakeClock drives the engine's notion of time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEngine(snapshots *fakeSnapshots, sink *captureSink) (*Engine, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	engine := NewEngine(DefaultConfig(), snapshots, sink, nil)
	engine.now = clock.Now
	return engine, clock
}

func sensor(id, state string) entity.State {
	return entity.State{EntityID: id, State: state}
}

func TestDoorOpen_ThresholdAndCooldown(t *testing.T) {
	snapshots := &fakeSnapshots{states: []entity.State{sensor("binary_sensor.front_door", "on")}}
	sink := &captureSink{}
	engine, clock := newTestEngine(snapshots, sink)
	ctx := context.Background()

	// t=0: tracking starts, nothing has been open long enough.
	engine.evaluate(ctx)
	if len(sink.all()) != 0 {
		t.Fatalf("expected no alerts at t=0, got %d", len(sink.all()))
	}

	// t=1900s: past the 1800s threshold, exactly one warning.
	clock.advance(1900 * time.Second)
	engine.evaluate(ctx)

	doorAlerts := sink.ofType(alert.TypeDoorOpen)
	if len(doorAlerts) != 1 {
		t.Fatalf("expected 1 door alert, got %d", len(doorAlerts))
	}
	a := doorAlerts[0]
	if a.Severity != alert.SeverityWarning {
		t.Errorf("expected warning severity, got %q", a.Severity)
	}
	if a.EntityID != "binary_sensor.front_door" {
		t.Errorf("unexpected entity %q", a.EntityID)
	}
	if len(a.Actions) != 3 || a.Actions[0].Label != "Close" {
		t.Errorf("unexpected suggested actions: %+v", a.Actions)
	}

	// t=1920s: cooldown active, no second alert.
	clock.advance(20 * time.Second)
	engine.evaluate(ctx)
	if got := len(sink.ofType(alert.TypeDoorOpen)); got != 1 {
		t.Errorf("cooldown violated: %d door alerts", got)
	}

	// After the cooldown expires the still-open door alerts again.
	clock.advance(2 * time.Hour)
	engine.evaluate(ctx)
	if got := len(sink.ofType(alert.TypeDoorOpen)); got != 2 {
		t.Errorf("expected a second alert after cooldown, got %d", got)
	}
}

func TestDoorOpen_CloseClearsTracking(t *testing.T) {
	snapshots := &fakeSnapshots{states: []entity.State{sensor("binary_sensor.patio_window", "open")}}
	sink := &captureSink{}
	engine, clock := newTestEngine(snapshots, sink)
	ctx := context.Background()

	engine.evaluate(ctx)
	clock.advance(20 * time.Minute)

	// Window closes before the threshold.
	snapshots.set([]entity.State{sensor("binary_sensor.patio_window", "off")}, nil)
	engine.evaluate(ctx)
	if len(engine.openSince) != 0 {
		t.Fatal("closed window still tracked")
	}

	// Reopening restarts the clock: 20 more minutes is not enough.
	snapshots.set([]entity.State{sensor("binary_sensor.patio_window", "open")}, nil)
	engine.evaluate(ctx)
	clock.advance(20 * time.Minute)
	engine.evaluate(ctx)

	if len(sink.ofType(alert.TypeDoorOpen)) != 0 {
		t.Error("reopened window alerted before reaching the threshold")
	}
}

func TestMotion_RisingEdgeOnly(t *testing.T) {
	snapshots := &fakeSnapshots{states: []entity.State{sensor("binary_sensor.hall_motion", "off")}}
	sink := &captureSink{}
	engine, clock := newTestEngine(snapshots, sink)
	ctx := context.Background()

	engine.evaluate(ctx)

	// Rising edge: off -> on.
	snapshots.set([]entity.State{sensor("binary_sensor.hall_motion", "on")}, nil)
	engine.evaluate(ctx)
	if got := len(sink.ofType(alert.TypeMotion)); got != 1 {
		t.Fatalf("expected 1 motion alert on rising edge, got %d", got)
	}

	// Still on: no duplicate.
	engine.evaluate(ctx)
	engine.evaluate(ctx)
	if got := len(sink.ofType(alert.TypeMotion)); got != 1 {
		t.Errorf("repeated on states produced duplicates: %d", got)
	}

	// Off then on again within the cooldown: suppressed.
	snapshots.set([]entity.State{sensor("binary_sensor.hall_motion", "off")}, nil)
	engine.evaluate(ctx)
	snapshots.set([]entity.State{sensor("binary_sensor.hall_motion", "on")}, nil)
	engine.evaluate(ctx)
	if got := len(sink.ofType(alert.TypeMotion)); got != 1 {
		t.Errorf("cooldown violated: %d motion alerts", got)
	}

	// A rising edge after the cooldown alerts again.
	snapshots.set([]entity.State{sensor("binary_sensor.hall_motion", "off")}, nil)
	engine.evaluate(ctx)
	clock.advance(6 * time.Minute)
	snapshots.set([]entity.State{sensor("binary_sensor.hall_motion", "on")}, nil)
	engine.evaluate(ctx)
	if got := len(sink.ofType(alert.TypeMotion)); got != 2 {
		t.Errorf("expected second alert after cooldown, got %d", got)
	}
}

func TestWaterLeak_NeverSuppressed(t *testing.T) {
	snapshots := &fakeSnapshots{states: []entity.State{sensor("binary_sensor.kitchen_leak", "wet")}}
	sink := &captureSink{}
	engine, _ := newTestEngine(snapshots, sink)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		engine.evaluate(ctx)
	}

	leaks := sink.ofType(alert.TypeWaterLeak)
	if len(leaks) != 3 {
		t.Fatalf("expected 3 leak alerts for 3 wet cycles, got %d", len(leaks))
	}
	for _, a := range leaks {
		if a.Severity != alert.SeverityCritical {
			t.Errorf("leak alert severity %q, want critical", a.Severity)
		}
	}
}

type fakeMetrics struct {
	mu           sync.Mutex
	temperatures map[string][]float64
	ticks        int
}

func (f *fakeMetrics) WriteTemperature(entityID string, celsius float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.temperatures == nil {
		f.temperatures = make(map[string][]float64)
	}
	f.temperatures[entityID] = append(f.temperatures[entityID], celsius)
}

func (f *fakeMetrics) WriteMonitorTick(time.Duration, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks++
}

func TestTemperature_BoundsAndMetrics(t *testing.T) {
	snapshots := &fakeSnapshots{states: []entity.State{
		sensor("sensor.cellar_temperature", "4.5"),
		sensor("sensor.attic_temperature", "33"),
		sensor("sensor.hall_temperature", "21"),
		sensor("sensor.broken_temperature", "unavailable"),
	}}
	sink := &captureSink{}
	engine, _ := newTestEngine(snapshots, sink)
	metrics := &fakeMetrics{}
	engine.SetMetricsWriter(metrics)
	ctx := context.Background()

	engine.evaluate(ctx)

	if got := len(sink.ofType(alert.TypeTemperatureLow)); got != 1 {
		t.Errorf("expected 1 low alert, got %d", got)
	}
	if got := len(sink.ofType(alert.TypeTemperatureHigh)); got != 1 {
		t.Errorf("expected 1 high alert, got %d", got)
	}

	// Stuck sensors stay quiet within the cooldown but keep reporting
	// readings to the metrics writer.
	engine.evaluate(ctx)
	if got := len(sink.ofType(alert.TypeTemperatureLow)); got != 1 {
		t.Errorf("cooldown violated for low alerts: %d", got)
	}
	if got := len(metrics.temperatures["sensor.cellar_temperature"]); got != 2 {
		t.Errorf("expected 2 readings written, got %d", got)
	}
	if _, ok := metrics.temperatures["sensor.broken_temperature"]; ok {
		t.Error("unavailable sensor must not produce readings")
	}
	if metrics.ticks != 2 {
		t.Errorf("expected 2 tick measurements, got %d", metrics.ticks)
	}
}

func TestOffline_SummarySuppressesIndividuals(t *testing.T) {
	offline := []entity.State{
		sensor("sensor.one", "unavailable"),
		sensor("sensor.two", "unavailable"),
		sensor("sensor.three", "unknown"),
		sensor("sensor.four", "unavailable"),
		sensor("sensor.five", "unavailable"),
		sensor("sensor.six", "unavailable"),
		// Ignored: noisy domain and backup entity.
		sensor("media_player.tv", "unavailable"),
		sensor("sensor.backup_state", "unavailable"),
	}
	snapshots := &fakeSnapshots{states: offline}
	sink := &captureSink{}
	engine, _ := newTestEngine(snapshots, sink)
	ctx := context.Background()

	engine.evaluate(ctx)

	if got := len(sink.ofType(alert.TypeOfflineSummary)); got != 1 {
		t.Fatalf("expected exactly 1 summary alert, got %d", got)
	}
	if got := len(sink.ofType(alert.TypeDeviceOffline)); got != 0 {
		t.Errorf("summary must suppress individual alerts, got %d", got)
	}

	// Summary is cooled down on the next cycle.
	engine.evaluate(ctx)
	if got := len(sink.ofType(alert.TypeOfflineSummary)); got != 1 {
		t.Errorf("summary cooldown violated: %d", got)
	}
}

func TestOffline_IndividualAlertsBelowThreshold(t *testing.T) {
	online := []entity.State{
		sensor("sensor.one", "on"),
		sensor("sensor.two", "on"),
		sensor("sensor.three", "on"),
	}
	snapshots := &fakeSnapshots{states: online}
	sink := &captureSink{}
	engine, _ := newTestEngine(snapshots, sink)
	ctx := context.Background()

	engine.evaluate(ctx)

	snapshots.set([]entity.State{
		sensor("sensor.one", "unavailable"),
		sensor("sensor.two", "unavailable"),
		sensor("sensor.three", "unavailable"),
	}, nil)
	engine.evaluate(ctx)

	if got := len(sink.ofType(alert.TypeDeviceOffline)); got != 3 {
		t.Errorf("expected 3 individual offline alerts, got %d", got)
	}
	if got := len(sink.ofType(alert.TypeOfflineSummary)); got != 0 {
		t.Errorf("no summary expected below threshold, got %d", got)
	}

	// Still offline next cycle: no transition, no new alerts.
	engine.evaluate(ctx)
	if got := len(sink.ofType(alert.TypeDeviceOffline)); got != 3 {
		t.Errorf("non-transition produced alerts: %d", got)
	}
}

func TestFetchFailure_SkipsCycleAndPreservesPrevious(t *testing.T) {
	snapshots := &fakeSnapshots{states: []entity.State{sensor("binary_sensor.hall_motion", "off")}}
	sink := &captureSink{}
	engine, _ := newTestEngine(snapshots, sink)
	ctx := context.Background()

	engine.evaluate(ctx)

	snapshots.set(nil, errors.New("backend unreachable"))
	engine.evaluate(ctx)

	if engine.Status().Ticks != 1 {
		t.Errorf("failed fetch must not count as a tick: %d", engine.Status().Ticks)
	}
	if engine.Status().LastError == "" {
		t.Error("expected last error to be recorded")
	}

	// The previous map still holds the off state, so the next good
	// cycle sees a genuine rising edge.
	snapshots.set([]entity.State{sensor("binary_sensor.hall_motion", "on")}, nil)
	engine.evaluate(ctx)

	if got := len(sink.ofType(alert.TypeMotion)); got != 1 {
		t.Errorf("expected rising edge after skipped cycle, got %d alerts", got)
	}
	if engine.Status().LastError != "" {
		t.Error("successful cycle must clear the last error")
	}
}

func TestStatusPublisher_FiresPerCycle(t *testing.T) {
	snapshots := &fakeSnapshots{states: []entity.State{sensor("binary_sensor.hall_motion", "off")}}
	sink := &captureSink{}
	engine, _ := newTestEngine(snapshots, sink)
	ctx := context.Background()

	var published []Status
	engine.SetStatusPublisher(func(st Status) {
		published = append(published, st)
	})

	engine.evaluate(ctx)
	engine.evaluate(ctx)

	if len(published) != 2 {
		t.Fatalf("expected 2 status publications, got %d", len(published))
	}
	if published[1].Ticks != 2 || published[1].TrackedEntities != 1 {
		t.Errorf("unexpected status snapshot: %+v", published[1])
	}

	// A failed fetch skips the cycle and must not publish.
	snapshots.set(nil, errors.New("backend unreachable"))
	engine.evaluate(ctx)

	if len(published) != 2 {
		t.Errorf("skipped cycle must not publish status, got %d", len(published))
	}
}

type fakeScenes struct {
	mu    sync.Mutex
	names []string
}

func (f *fakeScenes) Activate(_ context.Context, name, _ string) *scene.ActivationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	return &scene.ActivationResult{SceneName: name, Success: true}
}

type fakePrefs struct {
	values map[string]bool
}

func (f *fakePrefs) GetBool(_ context.Context, _ int64, key string, fallback bool) bool {
	if v, ok := f.values[key]; ok {
		return v
	}
	return fallback
}

func TestOnPresenceChange(t *testing.T) {
	tests := []struct {
		name      string
		location  string
		prefs     map[string]bool
		wantType  alert.Type
		wantScene string
	}{
		{
			name:      "departure activates away",
			location:  "away",
			wantType:  alert.TypeDeparture,
			wantScene: "away",
		},
		{
			name:      "arrival activates home",
			location:  "home",
			wantType:  alert.TypeArrival,
			wantScene: "home",
		},
		{
			name:     "auto away disabled",
			location: "away",
			prefs:    map[string]bool{"auto_away_mode": false},
		},
		{
			name:     "auto arrival disabled",
			location: "home",
			prefs:    map[string]bool{"auto_arrival_mode": false},
		},
		{
			name:     "unknown location ignored",
			location: "office",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &captureSink{}
			engine, _ := newTestEngine(&fakeSnapshots{}, sink)
			scenes := &fakeScenes{}
			engine.SetSceneActivator(scenes)
			engine.SetPreferenceStore(&fakePrefs{values: tt.prefs})

			engine.OnPresenceChange(context.Background(), 7, tt.location)

			if tt.wantType == "" {
				if len(sink.all()) != 0 || len(scenes.names) != 0 {
					t.Errorf("expected no effects, got alerts=%d scenes=%v", len(sink.all()), scenes.names)
				}
				return
			}

			if got := sink.ofType(tt.wantType); len(got) != 1 {
				t.Fatalf("expected 1 %s alert, got %d", tt.wantType, len(got))
			}
			if len(scenes.names) != 1 || scenes.names[0] != tt.wantScene {
				t.Errorf("expected scene %q activation, got %v", tt.wantScene, scenes.names)
			}
		})
	}
}

func TestStartStop(t *testing.T) {
	snapshots := &fakeSnapshots{states: []entity.State{sensor("sensor.hall_temperature", "21")}}
	sink := &captureSink{}

	cfg := DefaultConfig()
	cfg.Interval = 10 * time.Millisecond
	engine := NewEngine(cfg, snapshots, sink, nil)

	engine.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for engine.Status().Ticks < 2 {
		select {
		case <-deadline:
			t.Fatal("engine did not tick in time")
		case <-time.After(5 * time.Millisecond):
		}
	}

	engine.Stop()
	engine.Stop() // idempotent

	if engine.Status().Running {
		t.Error("expected Running=false after Stop")
	}
}
