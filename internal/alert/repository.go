package alert

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an alert ID does not exist.
var ErrNotFound = errors.New("alert: not found")

// Filter narrows and paginates alert listings.
type Filter struct {
	Type     Type
	Severity Severity
	EntityID string
	Limit    int
	Offset   int
}

// ListResult is a page of alerts with pagination metadata.
type ListResult struct {
	Alerts []Alert `json:"alerts"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Repository persists alerts.
type Repository interface {
	Create(ctx context.Context, a *Alert) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
	Unacknowledged(ctx context.Context) ([]Alert, error)
	Acknowledge(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository backed by SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts an alert. The ID and CreatedAt are generated when
// empty.
func (r *SQLiteRepository) Create(ctx context.Context, a *Alert) error {
	if a.ID == "" {
		a.ID = "alr-" + uuid.NewString()[:8]
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Severity == "" {
		a.Severity = SeverityInfo
	}

	var actionsJSON sql.NullString
	if len(a.Actions) > 0 {
		data, err := json.Marshal(a.Actions)
		if err != nil {
			return fmt.Errorf("marshaling alert actions: %w", err)
		}
		actionsJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO alerts (id, alert_type, entity_id, message, severity, actions, acknowledged, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Type), a.EntityID, a.Message,
		string(a.Severity), actionsJSON, boolToInt(a.Acknowledged),
		a.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}
	return nil
}

// List returns alerts newest first, filtered and paginated. Limit
// defaults to 50 and is capped at 200.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}

	var conditions []string
	var args []any

	if filter.Type != "" {
		conditions = append(conditions, "alert_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Severity != "" {
		conditions = append(conditions, "severity = ?")
		args = append(args, string(filter.Severity))
	}
	if filter.EntityID != "" {
		conditions = append(conditions, "entity_id = ?")
		args = append(args, filter.EntityID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM alerts %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting alerts: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, alert_type, entity_id, message, severity, actions, acknowledged, created_at FROM alerts %s ORDER BY created_at DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	alerts, err := scanAlerts(rows)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Alerts: alerts,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// Unacknowledged returns all pending alerts, newest first.
func (r *SQLiteRepository) Unacknowledged(ctx context.Context) ([]Alert, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, alert_type, entity_id, message, severity, actions, acknowledged, created_at FROM alerts WHERE acknowledged = 0 ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("querying unacknowledged alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// Acknowledge marks an alert as handled.
func (r *SQLiteRepository) Acknowledge(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE alerts SET acknowledged = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("acknowledging alert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("acknowledging alert: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAlerts(rows *sql.Rows) ([]Alert, error) {
	var alerts []Alert
	for rows.Next() {
		var a Alert
		var actionsJSON sql.NullString
		var acknowledged int
		var createdAt string

		if err := rows.Scan(&a.ID, &a.Type, &a.EntityID, &a.Message,
			&a.Severity, &actionsJSON, &acknowledged, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}

		if actionsJSON.Valid && actionsJSON.String != "" {
			var actions []Action
			if json.Unmarshal([]byte(actionsJSON.String), &actions) == nil {
				a.Actions = actions
			}
		}
		a.Acknowledged = acknowledged != 0

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing alert timestamp %q: %w", createdAt, err)
		}
		a.CreatedAt = t

		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}
	if alerts == nil {
		alerts = []Alert{}
	}
	return alerts, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
