package homeassistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FraudShield1/homeai-bot/internal/infrastructure/config"
)

// newTestClient points a Client at a httptest server.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := New(config.HomeAssistantConfig{
		URL:             srv.URL,
		Token:           "test-token",
		TimeoutSeconds:  5,
		CacheTTLSeconds: 30,
	}, nil)

	return client, srv
}

func statesHandler(calls *atomic.Int64, states string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/states" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(states)) //nolint:errcheck
	})
}

func TestFetchAllStates(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, statesHandler(&calls, `[
		{"entity_id":"light.kitchen","state":"on","attributes":{"friendly_name":"Kitchen"}},
		{"entity_id":"sensor.hall_temperature","state":"21.5","attributes":{}}
	]`))

	states, err := client.FetchAllStates(context.Background())
	if err != nil {
		t.Fatalf("FetchAllStates() error = %v", err)
	}

	if len(states) != 2 {
		t.Fatalf("expected 2 states, got %d", len(states))
	}
	if states[0].EntityID != "light.kitchen" || states[0].State != "on" {
		t.Errorf("unexpected first state: %+v", states[0])
	}
	if states[0].FriendlyName() != "Kitchen" {
		t.Errorf("FriendlyName() = %q, want Kitchen", states[0].FriendlyName())
	}
}

func TestFetchAllStates_CacheShared(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, statesHandler(&calls, `[{"entity_id":"light.a","state":"on"}]`))

	for i := 0; i < 3; i++ {
		if _, err := client.FetchAllStates(context.Background()); err != nil {
			t.Fatalf("FetchAllStates() error = %v", err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 upstream fetch within TTL, got %d", got)
	}
}

func TestFetchAllStates_CacheExpires(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, statesHandler(&calls, `[{"entity_id":"light.a","state":"on"}]`))

	now := time.Now()
	client.now = func() time.Time { return now }

	if _, err := client.FetchAllStates(context.Background()); err != nil {
		t.Fatalf("first fetch error = %v", err)
	}

	// Advance past the TTL.
	now = now.Add(31 * time.Second)

	if _, err := client.FetchAllStates(context.Background()); err != nil {
		t.Fatalf("second fetch error = %v", err)
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 upstream fetches across TTL boundary, got %d", got)
	}
}

func TestFetchAllStates_Unauthorized(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.FetchAllStates(context.Background())
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestCallAction(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	var gotAuth string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody) //nolint:errcheck
		w.WriteHeader(http.StatusOK)
	}))

	ok, err := client.CallAction(context.Background(), "light", "turn_on", "light.kitchen", map[string]any{
		"brightness_pct": 60,
	})
	if err != nil {
		t.Fatalf("CallAction() error = %v", err)
	}
	if !ok {
		t.Error("CallAction() = false, want true")
	}

	if gotPath != "/api/services/light/turn_on" {
		t.Errorf("path = %q, want /api/services/light/turn_on", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody["entity_id"] != "light.kitchen" {
		t.Errorf("entity_id = %v, want light.kitchen", gotBody["entity_id"])
	}
	if gotBody["brightness_pct"] != float64(60) {
		t.Errorf("brightness_pct = %v, want 60", gotBody["brightness_pct"])
	}
}

func TestCallAction_RejectedIsNotError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	ok, err := client.CallAction(context.Background(), "light", "turn_on", "light.kitchen", nil)
	if err != nil {
		t.Fatalf("CallAction() error = %v, want nil for rejected call", err)
	}
	if ok {
		t.Error("CallAction() = true, want false for 400 response")
	}
}

func TestCallAction_InvalidatesCache(t *testing.T) {
	var stateCalls atomic.Int64

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/states" {
			stateCalls.Add(1)
			w.Write([]byte(`[{"entity_id":"light.a","state":"on"}]`)) //nolint:errcheck
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	ctx := context.Background()
	if _, err := client.FetchAllStates(ctx); err != nil {
		t.Fatalf("fetch error = %v", err)
	}
	if _, err := client.TurnOff(ctx, "light.a"); err != nil {
		t.Fatalf("TurnOff error = %v", err)
	}
	if _, err := client.FetchAllStates(ctx); err != nil {
		t.Fatalf("fetch after action error = %v", err)
	}

	if got := stateCalls.Load(); got != 2 {
		t.Errorf("expected cache invalidation to force 2 fetches, got %d", got)
	}
}

func TestConvenienceVerbs(t *testing.T) {
	type call struct {
		path string
		body map[string]any
	}
	var calls []call

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		calls = append(calls, call{path: r.URL.Path, body: body})
		w.WriteHeader(http.StatusOK)
	}))

	ctx := context.Background()
	client.TurnOn(ctx, "switch.coffee_maker", nil)                         //nolint:errcheck
	client.SetTemperature(ctx, "climate.living_room", 21)                  //nolint:errcheck
	client.Lock(ctx, "lock.front_door")                                    //nolint:errcheck
	client.OpenCover(ctx, "cover.bedroom_blinds")                          //nolint:errcheck
	client.CallAction(ctx, "media_player", "turn_off", "media_player.tv", nil) //nolint:errcheck

	wantPaths := []string{
		"/api/services/switch/turn_on",
		"/api/services/climate/set_temperature",
		"/api/services/lock/lock",
		"/api/services/cover/open_cover",
		"/api/services/media_player/turn_off",
	}
	if len(calls) != len(wantPaths) {
		t.Fatalf("expected %d calls, got %d", len(wantPaths), len(calls))
	}
	for i, want := range wantPaths {
		if calls[i].path != want {
			t.Errorf("call %d path = %q, want %q", i, calls[i].path, want)
		}
	}

	if calls[1].body["temperature"] != float64(21) {
		t.Errorf("set_temperature body = %v", calls[1].body)
	}
}

func TestHealthCheck(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/" {
			w.Write([]byte(`{"message":"API running."}`)) //nolint:errcheck
			return
		}
		http.NotFound(w, r)
	}))

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
