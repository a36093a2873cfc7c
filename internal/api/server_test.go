package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/FraudShield1/homeai-bot/internal/alert"
	"github.com/FraudShield1/homeai-bot/internal/entity"
	"github.com/FraudShield1/homeai-bot/internal/infrastructure/config"
	"github.com/FraudShield1/homeai-bot/internal/infrastructure/logging"
	"github.com/FraudShield1/homeai-bot/internal/scene"
)

// ─── Mock Dependencies ─────────────────────────────────────────────

// mockSnapshots implements scene.SnapshotProvider with a fixed entity set.
type mockSnapshots struct {
	states []entity.State
}

func (m *mockSnapshots) FetchAllStates(_ context.Context) ([]entity.State, error) {
	return m.states, nil
}

// mockExecutor implements scene.Executor and records every call.
// Uses a mutex because activation may run from parallel requests.
type mockExecutor struct {
	mu    sync.Mutex
	calls []executorCall
}

type executorCall struct {
	domain   string
	service  string
	entityID string
}

func (m *mockExecutor) CallAction(_ context.Context, domain, service, entityID string, _ map[string]any) (bool, error) {
	m.mu.Lock()
	m.calls = append(m.calls, executorCall{domain: domain, service: service, entityID: entityID})
	m.mu.Unlock()
	return true, nil
}

// ─── Test Helpers ──────────────────────────────────────────────────

// setupAPITestDB creates an in-memory SQLite database with the scene and
// alert schemas.
func setupAPITestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}

	schema := `
		CREATE TABLE scenes (
			id          INTEGER PRIMARY KEY,
			name        TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			actions     TEXT NOT NULL,
			created_by  INTEGER NOT NULL DEFAULT 0,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		) STRICT;

		CREATE TABLE scene_activations (
			id          TEXT PRIMARY KEY,
			scene_name  TEXT NOT NULL,
			source      TEXT NOT NULL DEFAULT 'api',
			success     INTEGER NOT NULL DEFAULT 0,
			executed    TEXT NOT NULL DEFAULT '[]',
			failed      TEXT NOT NULL DEFAULT '[]',
			error       TEXT,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at  TEXT NOT NULL
		) STRICT;

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

// testServer creates a Server with a real scene store and alert repository
// backed by in-memory SQLite, and a scene engine with mock snapshot and
// executor dependencies.
func testServer(t *testing.T) (*Server, *scene.Store, alert.Repository, *mockExecutor) {
	t.Helper()

	db := setupAPITestDB(t)
	sceneRepo := scene.NewSQLiteRepository(db)
	store := scene.NewStore(sceneRepo)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	alertRepo := alert.NewSQLiteRepository(db)

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)
	go hub.Run(context.Background())

	snapshots := &mockSnapshots{
		states: []entity.State{
			{EntityID: "light.kitchen", State: "off", Attributes: map[string]any{"friendly_name": "Kitchen Light"}},
			{EntityID: "light.bedroom", State: "off", Attributes: map[string]any{"friendly_name": "Bedroom Light"}},
			{EntityID: "lock.front_door", State: "unlocked", Attributes: map[string]any{"friendly_name": "Front Door"}},
		},
	}
	executor := &mockExecutor{}
	engine := scene.NewEngine(store, snapshots, executor, sceneRepo, hub, nil)

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:      log,
		Scenes:      store,
		SceneEngine: engine,
		SceneRepo:   sceneRepo,
		Alerts:      alertRepo,
		ExternalHub: hub,
		Version:     "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return srv, store, alertRepo, executor
}

// ─── Server Tests ──────────────────────────────────────────────────

func TestNew_RequiresLogger(t *testing.T) {
	_, err := New(Deps{})
	if err == nil {
		t.Fatal("expected error for missing logger")
	}
}

func TestNew_RequiresSceneStore(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	_, err := New(Deps{Logger: log})
	if err == nil {
		t.Fatal("expected error for missing scene store")
	}
}

func TestHealth(t *testing.T) {
	srv, _, _, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestMonitorStatus_NotConfigured(t *testing.T) {
	srv, _, _, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/monitor/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _, _, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}

	// Client-provided request IDs are echoed back
	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "test-req-42")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "test-req-42" {
		t.Errorf("X-Request-ID = %q, want %q", got, "test-req-42")
	}
}
