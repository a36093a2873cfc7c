package scene

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for scene persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Scene catalog
	Get(ctx context.Context, name string) (*Scene, error)
	List(ctx context.Context) ([]Scene, error)
	Save(ctx context.Context, scene *Scene) error
	Delete(ctx context.Context, name string) error

	// Activation audit
	CreateActivation(ctx context.Context, act *Activation) error
	ListActivations(ctx context.Context, sceneName string, limit int) ([]Activation, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get retrieves a scene by case-normalized name.
func (r *SQLiteRepository) Get(ctx context.Context, name string) (*Scene, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT name, description, actions, created_by, created_at, updated_at FROM scenes WHERE name = ?",
		NormalizeName(name),
	)
	scene, err := scanScene(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying scene: %w", err)
	}
	return scene, nil
}

// List retrieves all scenes ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Scene, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT name, description, actions, created_by, created_at, updated_at FROM scenes ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying scenes: %w", err)
	}
	defer rows.Close()

	var scenes []Scene
	for rows.Next() {
		scene, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning scene: %w", err)
		}
		scenes = append(scenes, *scene)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scenes: %w", err)
	}
	if scenes == nil {
		scenes = []Scene{}
	}
	return scenes, nil
}

// Save upserts a scene by its case-normalized name. CreatedAt is
// preserved on update; UpdatedAt is always refreshed.
func (r *SQLiteRepository) Save(ctx context.Context, scene *Scene) error {
	actionsJSON, err := json.Marshal(scene.Actions)
	if err != nil {
		return fmt.Errorf("marshalling actions: %w", err)
	}

	now := time.Now().UTC()
	if scene.CreatedAt.IsZero() {
		scene.CreatedAt = now
	}
	scene.UpdatedAt = now
	scene.Name = NormalizeName(scene.Name)

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO scenes (name, description, actions, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			actions = excluded.actions,
			updated_at = excluded.updated_at`,
		scene.Name,
		scene.Description,
		string(actionsJSON),
		scene.CreatedBy,
		scene.CreatedAt.Format(time.RFC3339),
		scene.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving scene %q: %w", scene.Name, err)
	}
	return nil
}

// Delete removes a scene by name. Returns ErrNotFound if absent.
func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM scenes WHERE name = ?", NormalizeName(name))
	if err != nil {
		return fmt.Errorf("deleting scene %q: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting scene %q: %w", name, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateActivation persists an activation audit row. The ID and
// CreatedAt are generated when empty.
func (r *SQLiteRepository) CreateActivation(ctx context.Context, act *Activation) error {
	if act.ID == "" {
		act.ID = "act-" + uuid.NewString()[:8]
	}
	if act.CreatedAt.IsZero() {
		act.CreatedAt = time.Now().UTC()
	}

	executedJSON, err := json.Marshal(emptyIfNil(act.Executed))
	if err != nil {
		return fmt.Errorf("marshalling executed outcomes: %w", err)
	}
	failedJSON, err := json.Marshal(emptyIfNil(act.Failed))
	if err != nil {
		return fmt.Errorf("marshalling failed outcomes: %w", err)
	}

	var errText sql.NullString
	if act.Error != "" {
		errText = sql.NullString{String: act.Error, Valid: true}
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO scene_activations (id, scene_name, source, success, executed, failed, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		act.ID, NormalizeName(act.SceneName), act.Source, boolToInt(act.Success),
		string(executedJSON), string(failedJSON), errText, act.DurationMS,
		act.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting activation: %w", err)
	}
	return nil
}

// ListActivations returns the most recent activations for a scene.
// Limit defaults to 20 and is capped at 100.
func (r *SQLiteRepository) ListActivations(ctx context.Context, sceneName string, limit int) ([]Activation, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, scene_name, source, success, executed, failed, error, duration_ms, created_at
		 FROM scene_activations WHERE scene_name = ? ORDER BY created_at DESC LIMIT ?`,
		NormalizeName(sceneName), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying activations: %w", err)
	}
	defer rows.Close()

	var activations []Activation
	for rows.Next() {
		var act Activation
		var success int
		var executedJSON, failedJSON string
		var errText sql.NullString
		var createdAt string

		if err := rows.Scan(&act.ID, &act.SceneName, &act.Source, &success,
			&executedJSON, &failedJSON, &errText, &act.DurationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning activation: %w", err)
		}

		act.Success = success != 0
		if errText.Valid {
			act.Error = errText.String
		}
		if err := json.Unmarshal([]byte(executedJSON), &act.Executed); err != nil {
			return nil, fmt.Errorf("unmarshalling executed outcomes: %w", err)
		}
		if err := json.Unmarshal([]byte(failedJSON), &act.Failed); err != nil {
			return nil, fmt.Errorf("unmarshalling failed outcomes: %w", err)
		}

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing activation timestamp %q: %w", createdAt, err)
		}
		act.CreatedAt = t

		activations = append(activations, act)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activations: %w", err)
	}
	if activations == nil {
		activations = []Activation{}
	}
	return activations, nil
}

// scanner abstracts over *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanScene(s scanner) (*Scene, error) {
	var scene Scene
	var actionsJSON string
	var createdAt, updatedAt string

	if err := s.Scan(&scene.Name, &scene.Description, &actionsJSON,
		&scene.CreatedBy, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(actionsJSON), &scene.Actions); err != nil {
		return nil, fmt.Errorf("unmarshalling actions for %q: %w", scene.Name, err)
	}

	var err error
	if scene.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	if scene.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at %q: %w", updatedAt, err)
	}
	return &scene, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
