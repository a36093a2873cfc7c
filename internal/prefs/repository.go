// Package prefs stores per-user preference flags in SQLite.
//
// Preferences are free-form string key/value pairs. The monitoring
// engine reads auto_away_mode and auto_arrival_mode through GetBool to
// decide whether presence changes trigger scenes and alerts; unknown
// keys fall back to the caller's default so a fresh install behaves
// sensibly without seeding.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when a preference key has never been set.
var ErrNotFound = errors.New("prefs: not found")

// Store reads and writes user preferences.
type Store interface {
	Set(ctx context.Context, userID int64, key, value string) error
	Get(ctx context.Context, userID int64, key string) (string, error)
	GetBool(ctx context.Context, userID int64, key string, fallback bool) bool
}

// SQLiteStore implements Store backed by the user_preferences table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Set upserts a preference value.
func (s *SQLiteStore) Set(ctx context.Context, userID int64, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_preferences (user_id, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		userID, key, value, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("setting preference %q: %w", key, err)
	}
	return nil
}

// Get returns the stored value, or ErrNotFound when the key was never
// set for this user.
func (s *SQLiteStore) Get(ctx context.Context, userID int64, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM user_preferences WHERE user_id = ? AND key = ?",
		userID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting preference %q: %w", key, err)
	}
	return value, nil
}

// GetBool interprets a preference as a boolean, returning fallback for
// missing keys, unparseable values, or query errors.
func (s *SQLiteStore) GetBool(ctx context.Context, userID int64, key string, fallback bool) bool {
	value, err := s.Get(ctx, userID, key)
	if err != nil {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(value)))
	if err != nil {
		return fallback
	}
	return parsed
}
