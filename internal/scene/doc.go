// Package scene provides the scene engine for the home assistant.
//
// Scenes are named, declarative bundles of per-domain actions (lights,
// climate, locks, covers, switches, media, plus free-form custom keys).
// Activating a scene resolves each action against one snapshot of live
// entity states and fans out best-effort service calls.
//
// # Key Types
//
//   - Scene: Named map of domain key to ActionSpec
//   - ActionSpec: Verb plus room/device filters and numeric parameters
//   - Engine: Orchestrator that activates scenes against the backend
//   - Store: Thread-safe in-memory cache wrapping Repository
//   - ActivationResult: Per-device outcome accounting for one activation
//
// # Execution Model
//
// Known domain keys execute in a fixed order (lights, climate, locks,
// covers, switches, media), then custom keys in sorted order. Each
// device call gets its own timeout; a failure is recorded in the
// result's Failed list and never aborts the remaining devices. Success
// reflects only whether the orchestration itself completed.
//
// # Thread Safety
//
// Store and Engine are safe for concurrent use. Activations of the
// same scene name are serialized; distinct names run in parallel.
//
// # Usage
//
//	repo := scene.NewSQLiteRepository(db)
//	store := scene.NewStore(repo)
//	store.SetLogger(log)
//
//	if err := store.Refresh(ctx); err != nil {
//	    return err
//	}
//	if err := store.SeedDefaults(ctx); err != nil {
//	    return err
//	}
//
//	engine := scene.NewEngine(store, haClient, haClient, repo, hub, log)
//	result := engine.Activate(ctx, "movie", "api")
package scene
