package scene

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Store and Engine.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store provides scene catalog management with caching and thread
// safety. It wraps a Repository and adds an in-memory cache keyed by
// case-normalized name, kept in sync by cache-invalidating writes.
//
// All public methods are thread-safe.
type Store struct {
	repo    Repository
	cache   map[string]*Scene
	cacheMu sync.RWMutex
	logger  Logger
}

// NewStore creates a new scene store.
// The repository is used for persistence; the store adds caching.
func NewStore(repo Repository) *Store {
	return &Store{
		repo:   repo,
		cache:  make(map[string]*Scene),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Refresh reloads all scenes from the repository into the cache.
// This should be called on application startup.
func (s *Store) Refresh(ctx context.Context) error {
	scenes, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading scenes: %w", err)
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.cache = make(map[string]*Scene, len(scenes))
	for i := range scenes {
		sc := scenes[i]
		s.cache[sc.Name] = sc.DeepCopy()
	}

	s.logger.Info("scene cache refreshed", "count", len(scenes))
	return nil
}

// Get retrieves a scene by name, case-insensitively.
// The returned scene is a deep copy; callers can safely modify it.
func (s *Store) Get(_ context.Context, name string) (*Scene, error) {
	s.cacheMu.RLock()
	cached, ok := s.cache[NormalizeName(name)]
	s.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	return nil, ErrNotFound
}

// List retrieves all scenes from the cache.
// Returns deep copies sorted by name for deterministic ordering.
func (s *Store) List(_ context.Context) ([]Scene, error) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	scenes := make([]Scene, 0, len(s.cache))
	for _, sc := range s.cache {
		scenes = append(scenes, *sc.DeepCopy())
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Name < scenes[j].Name })
	return scenes, nil
}

// Save validates, persists, and caches a scene. An existing scene with
// the same case-normalized name is overwritten.
func (s *Store) Save(ctx context.Context, scene *Scene) error {
	scene.Name = NormalizeName(scene.Name)

	if err := Validate(scene); err != nil {
		return err
	}

	if err := s.repo.Save(ctx, scene); err != nil {
		return err
	}

	s.cacheMu.Lock()
	s.cache[scene.Name] = scene.DeepCopy()
	s.cacheMu.Unlock()

	s.logger.Info("scene saved", "name", scene.Name)
	return nil
}

// Delete removes a scene from persistence and cache.
func (s *Store) Delete(ctx context.Context, name string) error {
	name = NormalizeName(name)

	if err := s.repo.Delete(ctx, name); err != nil {
		return err
	}

	s.cacheMu.Lock()
	delete(s.cache, name)
	s.cacheMu.Unlock()

	s.logger.Info("scene deleted", "name", name)
	return nil
}

// Count returns the number of cached scenes.
func (s *Store) Count() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return len(s.cache)
}

// SeedDefaults installs the stock scenes that are not already present.
// Existing scenes, edited or not, are never overwritten, so seeding is
// safe to run on every startup.
func (s *Store) SeedDefaults(ctx context.Context) error {
	for _, def := range DefaultScenes() {
		if _, err := s.Get(ctx, def.Name); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		def := def
		if err := s.Save(ctx, &def); err != nil {
			return fmt.Errorf("seeding scene %q: %w", def.Name, err)
		}
		s.logger.Info("default scene created", "name", def.Name)
	}
	return nil
}
