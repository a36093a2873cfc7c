package scene

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/FraudShield1/homeai-bot/internal/entity"
)

// SnapshotProvider supplies a point-in-time view of all entity states.
type SnapshotProvider interface {
	FetchAllStates(ctx context.Context) ([]entity.State, error)
}

// Executor performs a single domain-service call against the
// smart-home backend. The bool result distinguishes a rejected call
// (backend said no) from a transport error.
type Executor interface {
	CallAction(ctx context.Context, domain, service, entityID string, data map[string]any) (bool, error)
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// CustomHandler executes a custom (non-domain) scene action and
// returns a human-readable outcome description.
type CustomHandler func(ctx context.Context, spec ActionSpec) (string, error)

// defaultActionTimeout bounds each individual device call so one hung
// backend request cannot stall the rest of the activation.
const defaultActionTimeout = 5 * time.Second

// Engine orchestrates scene activation.
//
// It resolves a scene's declarative action bundle against one entity
// snapshot, fans out per-device service calls in a fixed domain order,
// and records every activation. Device failures are collected, never
// raised: a scene with three working lights and two dead ones still
// completes with Success=true and two Failed entries.
//
// Thread Safety: Activate is safe for concurrent use. Activations of
// the same scene name are serialized; distinct names run in parallel.
type Engine struct {
	store     *Store
	snapshots SnapshotProvider
	executor  Executor
	repo      Repository
	hub       WSHub
	logger    Logger

	actionTimeout time.Duration

	// publish, when set, receives every finished activation for
	// delivery outside the process (MQTT).
	publish func(*ActivationResult)

	customMu sync.RWMutex
	custom   map[string]CustomHandler

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewEngine creates a new scene engine.
//
// Parameters:
//   - store: Scene store for loading scene definitions
//   - snapshots: Entity snapshot provider (one fetch per activation)
//   - executor: Backend executor for device service calls
//   - repo: Repository for persisting activation records
//   - hub: WebSocket hub for broadcasting activation events (may be nil)
//   - logger: Logger instance
func NewEngine(store *Store, snapshots SnapshotProvider, executor Executor, repo Repository, hub WSHub, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		store:         store,
		snapshots:     snapshots,
		executor:      executor,
		repo:          repo,
		hub:           hub,
		logger:        logger,
		actionTimeout: defaultActionTimeout,
		custom:        make(map[string]CustomHandler),
		locks:         make(map[string]*sync.Mutex),
	}
}

// SetActionTimeout overrides the per-device call timeout.
func (e *Engine) SetActionTimeout(d time.Duration) {
	if d > 0 {
		e.actionTimeout = d
	}
}

// SetActivationPublisher attaches a callback invoked with every
// finished activation, after the record is persisted and broadcast.
// Must be called before the first Activate.
func (e *Engine) SetActivationPublisher(fn func(*ActivationResult)) {
	e.publish = fn
}

// RegisterCustomHandler installs a handler for a custom action key.
// Scenes referencing an unregistered key record a failed outcome for
// that entry only.
func (e *Engine) RegisterCustomHandler(key string, handler CustomHandler) {
	e.customMu.Lock()
	defer e.customMu.Unlock()
	e.custom[key] = handler
}

// Activate runs the named scene and returns the outcome. It never
// returns an error: unknown names, snapshot failures, and device
// failures are all reported through the result.
func (e *Engine) Activate(ctx context.Context, name, source string) *ActivationResult {
	started := time.Now()
	name = NormalizeName(name)

	result := &ActivationResult{
		SceneName: name,
		Executed:  []string{},
		Failed:    []string{},
	}

	// Serialize activations of the same scene so two triggers cannot
	// interleave and double-toggle the same devices.
	mu := e.lockFor(name)
	mu.Lock()
	defer mu.Unlock()

	sc, err := e.store.Get(ctx, name)
	if err != nil {
		result.NotFound = true
		result.Error = "scene not found"
		e.finish(ctx, result, source, started)
		return result
	}

	states, err := e.snapshots.FetchAllStates(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("fetching entity states: %v", err)
		e.logger.Error("scene activation aborted", "scene", name, "error", err)
		e.finish(ctx, result, source, started)
		return result
	}

	e.logger.Info("scene activation started", "scene", name, "source", source, "actions", len(sc.Actions))

	// Orchestration completed means success, whatever the per-device
	// outcomes were.
	result.Success = true

	for _, key := range sc.orderedKeys() {
		spec := sc.Actions[key]
		if IsKnownDomain(key) {
			e.executeDomain(ctx, DomainKey(key), spec, states, result)
		} else {
			e.executeCustom(ctx, key, spec, result)
		}
	}

	e.finish(ctx, result, source, started)
	return result
}

// executeDomain resolves the candidate set for one domain key and
// drives each device through the executor.
func (e *Engine) executeDomain(ctx context.Context, key DomainKey, spec ActionSpec, states []entity.State, result *ActivationResult) {
	label := domainLabel(key)

	for _, st := range resolveCandidates(states, entityDomains[key], spec) {
		desc := fmt.Sprintf("%s %s: %s", label, st.EntityID, outcomeVerb(key, spec))

		ok, err := e.callDevice(ctx, key, spec, st.EntityID)
		switch {
		case err != nil:
			e.logger.Warn("scene device call failed", "entity_id", st.EntityID, "error", err)
			result.Failed = append(result.Failed, fmt.Sprintf("%s %s: %v", label, st.EntityID, err))
		case !ok:
			result.Failed = append(result.Failed, desc)
		default:
			result.Executed = append(result.Executed, desc)
		}
	}
}

// callDevice issues one bounded service call for the given domain verb.
func (e *Engine) callDevice(ctx context.Context, key DomainKey, spec ActionSpec, entityID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, e.actionTimeout)
	defer cancel()

	domain := entityDomains[key]
	switch key {
	case KeyLights:
		if spec.Action == "turn_on" && spec.Brightness != nil {
			return e.executor.CallAction(ctx, domain, "turn_on", entityID, map[string]any{"brightness_pct": *spec.Brightness})
		}
		return e.executor.CallAction(ctx, domain, spec.Action, entityID, nil)
	case KeyClimate:
		// Rows loaded from the database skip Save validation, so the
		// target temperature can be absent.
		if spec.Temperature == nil {
			return false, fmt.Errorf("no temperature set")
		}
		return e.executor.CallAction(ctx, domain, "set_temperature", entityID, map[string]any{"temperature": *spec.Temperature})
	case KeyLocks, KeySwitches, KeyMedia:
		return e.executor.CallAction(ctx, domain, spec.Action, entityID, nil)
	case KeyCovers:
		service := "close_cover"
		if spec.Action == "open" {
			service = "open_cover"
		}
		return e.executor.CallAction(ctx, domain, service, entityID, nil)
	default:
		return false, fmt.Errorf("unsupported domain key %q", key)
	}
}

// executeCustom dispatches a custom action key through the handler
// table. Unregistered keys fail that entry only.
func (e *Engine) executeCustom(ctx context.Context, key string, spec ActionSpec, result *ActivationResult) {
	e.customMu.RLock()
	handler := e.custom[key]
	e.customMu.RUnlock()

	if handler == nil {
		result.Failed = append(result.Failed, fmt.Sprintf("Custom %s: no handler registered", key))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, e.actionTimeout)
	defer cancel()

	desc, err := handler(ctx, spec)
	if err != nil {
		e.logger.Warn("custom scene action failed", "key", key, "error", err)
		result.Failed = append(result.Failed, fmt.Sprintf("Custom %s: %v", key, err))
		return
	}
	if desc == "" {
		desc = fmt.Sprintf("Custom %s: %s", key, spec.Action)
	}
	result.Executed = append(result.Executed, desc)
}

// finish stamps the duration, persists the activation record, and
// broadcasts the result.
func (e *Engine) finish(ctx context.Context, result *ActivationResult, source string, started time.Time) {
	result.DurationMS = time.Since(started).Milliseconds()

	if e.repo != nil {
		act := &Activation{
			SceneName:  result.SceneName,
			Source:     source,
			Success:    result.Success,
			Executed:   result.Executed,
			Failed:     result.Failed,
			Error:      result.Error,
			DurationMS: result.DurationMS,
		}
		if err := e.repo.CreateActivation(ctx, act); err != nil {
			e.logger.Error("failed to record scene activation", "scene", result.SceneName, "error", err)
		}
	}

	if e.hub != nil {
		e.hub.Broadcast("scenes", result)
	}
	if e.publish != nil {
		e.publish(result)
	}

	e.logger.Info("scene activation complete",
		"scene", result.SceneName,
		"success", result.Success,
		"executed", len(result.Executed),
		"failed", len(result.Failed),
		"duration_ms", result.DurationMS,
	)
}

// lockFor returns the mutex serializing activations of one scene name.
func (e *Engine) lockFor(name string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()

	mu, ok := e.locks[name]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[name] = mu
	}
	return mu
}

// resolveCandidates filters a snapshot down to the entities one
// ActionSpec targets: domain prefix first, then the rooms/devices
// inclusion terms (bypassed by the "all" sentinel), then exclusions.
func resolveCandidates(states []entity.State, domain string, spec ActionSpec) []entity.State {
	prefix := domain + "."

	var candidates []entity.State
	for _, st := range states {
		if strings.HasPrefix(st.EntityID, prefix) {
			candidates = append(candidates, st)
		}
	}

	include := append(append([]string{}, spec.Rooms...), spec.Devices...)
	if len(include) > 0 && !containsAll(include) {
		var kept []entity.State
		for _, st := range candidates {
			if matchesAny(st, include) {
				kept = append(kept, st)
			}
		}
		candidates = kept
	}

	if len(spec.Except) > 0 {
		var kept []entity.State
		for _, st := range candidates {
			if !matchesAny(st, spec.Except) {
				kept = append(kept, st)
			}
		}
		candidates = kept
	}

	return candidates
}

func containsAll(terms []string) bool {
	for _, t := range terms {
		if strings.EqualFold(strings.TrimSpace(t), "all") {
			return true
		}
	}
	return false
}

func matchesAny(st entity.State, terms []string) bool {
	for _, t := range terms {
		if st.NameMatches(t) {
			return true
		}
	}
	return false
}

// outcomeVerb renders the verb portion of an outcome description.
func outcomeVerb(key DomainKey, spec ActionSpec) string {
	if key == KeyClimate && spec.Temperature != nil {
		return fmt.Sprintf("%.1f°C", *spec.Temperature)
	}
	return spec.Action
}

func domainLabel(key DomainKey) string {
	switch key {
	case KeyLights:
		return "Light"
	case KeyClimate:
		return "Climate"
	case KeyLocks:
		return "Lock"
	case KeyCovers:
		return "Cover"
	case KeySwitches:
		return "Switch"
	case KeyMedia:
		return "Media"
	default:
		return "Device"
	}
}
