package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/FraudShield1/homeai-bot/internal/entity"
	"github.com/FraudShield1/homeai-bot/internal/infrastructure/config"
)

// Default timeouts and limits.
const (
	defaultTimeout  = 10 * time.Second
	defaultCacheTTL = 30 * time.Second

	// maxResponseSize caps /api/states responses (a large installation
	// with attribute-heavy entities stays well under this).
	maxResponseSize = 16 << 20 // 16MB
)

// Sentinel errors for Home Assistant operations.
var (
	// ErrUnauthorized indicates the access token was rejected.
	ErrUnauthorized = errors.New("homeassistant: unauthorized (check access token)")

	// ErrUnavailable indicates the instance could not be reached.
	ErrUnavailable = errors.New("homeassistant: instance unavailable")

	// ErrBadStatus indicates an unexpected HTTP status.
	ErrBadStatus = errors.New("homeassistant: unexpected response status")
)

// Logger is the minimal logging interface the client needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Client talks to the Home Assistant REST API.
//
// Thread Safety: all methods are safe for concurrent use. The snapshot
// cache is guarded by a mutex; HTTP requests run concurrently.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     Logger

	cacheTTL time.Duration
	mu       sync.Mutex
	cached   []entity.State
	cachedAt time.Time

	// now is replaceable for tests.
	now func() time.Time
}

// New creates a Client from the home_assistant config section.
// It does not contact the instance; use HealthCheck for that.
func New(cfg config.HomeAssistantConfig, logger Logger) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cacheTTL := cfg.CacheTTL()
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	if logger == nil {
		logger = noopLogger{}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		cacheTTL:   cacheTTL,
		now:        time.Now,
	}
}

// HealthCheck verifies the API is reachable and the token is accepted.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	drain(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}
}

// FetchAllStates returns a snapshot of every entity state.
//
// Snapshots are cached for the configured TTL; callers within the window
// share one fetch. The returned slice is a copy and safe to retain.
func (c *Client) FetchAllStates(ctx context.Context) ([]entity.State, error) {
	c.mu.Lock()
	if c.cached != nil && c.now().Sub(c.cachedAt) < c.cacheTTL {
		snapshot := copyStates(c.cached)
		c.mu.Unlock()
		return snapshot, nil
	}
	c.mu.Unlock()

	req, err := c.newRequest(ctx, http.MethodGet, "/api/states", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		drain(resp.Body)
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		drain(resp.Body)
		return nil, fmt.Errorf("%w: %d fetching states", ErrBadStatus, resp.StatusCode)
	}

	var states []entity.State
	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize))
	if err := decoder.Decode(&states); err != nil {
		return nil, fmt.Errorf("homeassistant: decoding states: %w", err)
	}

	c.mu.Lock()
	c.cached = copyStates(states)
	c.cachedAt = c.now()
	c.mu.Unlock()

	c.logger.Debug("fetched entity states", "count", len(states))
	return states, nil
}

// InvalidateCache drops the cached snapshot so the next FetchAllStates
// hits the API.
func (c *Client) InvalidateCache() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

// CallAction invokes a Home Assistant service for one entity.
//
// domain and service map directly to POST /api/services/{domain}/{service};
// data carries extra service fields (brightness, temperature, ...). The
// bool result reports whether the service call was accepted; transport
// failures are returned as errors.
func (c *Client) CallAction(ctx context.Context, domain, service, entityID string, data map[string]any) (bool, error) {
	payload := make(map[string]any, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	if entityID != "" {
		payload["entity_id"] = entityID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("homeassistant: marshaling service data: %w", err)
	}

	path := fmt.Sprintf("/api/services/%s/%s", domain, service)
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	drain(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return false, ErrUnauthorized
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if ok {
		// State almost certainly changed; next snapshot must be fresh.
		c.InvalidateCache()
	} else {
		c.logger.Warn("service call rejected",
			"domain", domain,
			"service", service,
			"entity_id", entityID,
			"status", resp.StatusCode,
		)
	}

	return ok, nil
}

// TurnOn switches an entity on. The service domain is derived from the
// entity id prefix, so switch.coffee_maker routes to switch/turn_on.
func (c *Client) TurnOn(ctx context.Context, entityID string, data map[string]any) (bool, error) {
	return c.CallAction(ctx, domainOf(entityID), "turn_on", entityID, data)
}

// TurnOff switches an entity off.
func (c *Client) TurnOff(ctx context.Context, entityID string) (bool, error) {
	return c.CallAction(ctx, domainOf(entityID), "turn_off", entityID, nil)
}

// SetTemperature sets a climate entity's target temperature.
func (c *Client) SetTemperature(ctx context.Context, entityID string, celsius float64) (bool, error) {
	return c.CallAction(ctx, "climate", "set_temperature", entityID, map[string]any{
		"temperature": celsius,
	})
}

// Lock locks a lock entity.
func (c *Client) Lock(ctx context.Context, entityID string) (bool, error) {
	return c.CallAction(ctx, "lock", "lock", entityID, nil)
}

// Unlock unlocks a lock entity.
func (c *Client) Unlock(ctx context.Context, entityID string) (bool, error) {
	return c.CallAction(ctx, "lock", "unlock", entityID, nil)
}

// OpenCover opens a cover entity (blinds, garage door).
func (c *Client) OpenCover(ctx context.Context, entityID string) (bool, error) {
	return c.CallAction(ctx, "cover", "open_cover", entityID, nil)
}

// CloseCover closes a cover entity.
func (c *Client) CloseCover(ctx context.Context, entityID string) (bool, error) {
	return c.CallAction(ctx, "cover", "close_cover", entityID, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("homeassistant: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return req, nil
}

func domainOf(entityID string) string {
	if idx := strings.IndexByte(entityID, '.'); idx > 0 {
		return entityID[:idx]
	}
	return entityID
}

func copyStates(states []entity.State) []entity.State {
	out := make([]entity.State, len(states))
	copy(out, states)
	return out
}

// drain consumes a response body so the connection can be reused.
func drain(r io.Reader) {
	io.Copy(io.Discard, io.LimitReader(r, maxResponseSize)) //nolint:errcheck
}
