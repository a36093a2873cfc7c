package alert

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the alerts schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}

	// Matches the alerts table migration.
	schema := `
		CREATE TABLE alerts (
			id           TEXT PRIMARY KEY,
			alert_type   TEXT NOT NULL,
			entity_id    TEXT NOT NULL DEFAULT '',
			message      TEXT NOT NULL,
			severity     TEXT NOT NULL DEFAULT 'info',
			actions      TEXT,
			acknowledged INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT NOT NULL
		) STRICT;`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreate_GeneratesIDAndDefaults(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	a := Alert{
		Type:     TypeDoorOpen,
		EntityID: "binary_sensor.front_door",
		Message:  "Front Door has been open for 31 minutes",
		Actions:  []Action{{Label: "Close"}, {Label: "Remind in 1 hour"}},
	}
	if err := repo.Create(ctx, &a); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if a.ID == "" {
		t.Error("expected generated ID")
	}
	if a.Severity != SeverityInfo {
		t.Errorf("expected default severity info, got %q", a.Severity)
	}
	if a.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestCreate_RoundTrip(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	a := Alert{
		Type:     TypeWaterLeak,
		EntityID: "binary_sensor.kitchen_leak",
		Message:  "Water leak detected by Kitchen Leak",
		Severity: SeverityCritical,
		Actions:  []Action{{Label: "Shut off water", Ref: "switch.water_main"}},
	}
	if err := repo.Create(ctx, &a); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result.Alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(result.Alerts))
	}

	got := result.Alerts[0]
	if got.Type != TypeWaterLeak || got.Severity != SeverityCritical {
		t.Errorf("unexpected alert: %+v", got)
	}
	if got.EntityID != "binary_sensor.kitchen_leak" {
		t.Errorf("unexpected entity_id %q", got.EntityID)
	}
	if len(got.Actions) != 1 || got.Actions[0].Ref != "switch.water_main" {
		t.Errorf("unexpected actions: %+v", got.Actions)
	}
}

func TestList_Filters(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	seed := []Alert{
		{Type: TypeDoorOpen, EntityID: "binary_sensor.front_door", Message: "door", Severity: SeverityWarning},
		{Type: TypeMotion, EntityID: "binary_sensor.hall_motion", Message: "motion", Severity: SeverityInfo},
		{Type: TypeDoorOpen, EntityID: "binary_sensor.back_door", Message: "door", Severity: SeverityWarning},
	}
	for i := range seed {
		seed[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	result, err := repo.List(ctx, Filter{Type: TypeDoorOpen})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Total != 2 {
		t.Errorf("expected total 2, got %d", result.Total)
	}
	// Newest first.
	if result.Alerts[0].EntityID != "binary_sensor.back_door" {
		t.Errorf("expected newest first, got %q", result.Alerts[0].EntityID)
	}

	result, err = repo.List(ctx, Filter{Severity: SeverityInfo})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Total != 1 || result.Alerts[0].Type != TypeMotion {
		t.Errorf("unexpected severity filter result: %+v", result)
	}
}

func TestList_Pagination(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		a := Alert{
			Type:      TypeDeviceOffline,
			EntityID:  fmt.Sprintf("sensor.device_%d", i),
			Message:   "offline",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.Create(ctx, &a); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	result, err := repo.List(ctx, Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Total)
	}
	if len(result.Alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(result.Alerts))
	}
	if result.Alerts[0].EntityID != "sensor.device_2" {
		t.Errorf("unexpected page start: %q", result.Alerts[0].EntityID)
	}
}

func TestAcknowledge(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	a := Alert{Type: TypeMotion, Message: "motion"}
	if err := repo.Create(ctx, &a); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	pending, err := repo.Unacknowledged(ctx)
	if err != nil {
		t.Fatalf("Unacknowledged failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending alert, got %d", len(pending))
	}

	if err := repo.Acknowledge(ctx, a.ID); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}

	pending, err = repo.Unacknowledged(ctx)
	if err != nil {
		t.Fatalf("Unacknowledged failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending alerts, got %d", len(pending))
	}
}

func TestAcknowledge_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.Acknowledge(context.Background(), "alr-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMultiSink_ContinuesPastFailures(t *testing.T) {
	var delivered int
	failing := SinkFunc(func(context.Context, Alert) error {
		return errors.New("broker down")
	})
	counting := SinkFunc(func(context.Context, Alert) error {
		delivered++
		return nil
	})

	sink := NewMultiSink(nil, failing, counting)
	if err := sink.Notify(context.Background(), Alert{Type: TypeMotion}); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if delivered != 1 {
		t.Errorf("expected downstream sink to run, delivered=%d", delivered)
	}
}
