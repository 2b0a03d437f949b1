// Package notification records operational notifications: promoted
// leads, completed sequences, and permanently failed tasks. They feed
// the ops dashboard rather than outbound email.
package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Kind classifies a notification.
type Kind string

const (
	KindLeadPromoted      Kind = "lead_promoted"
	KindSequenceCompleted Kind = "sequence_completed"
	KindTaskFailed        Kind = "task_failed"
)

// Notification is one recorded event.
type Notification struct {
	ID        uuid.UUID       `json:"id"`
	Kind      Kind            `json:"kind"`
	Message   string          `json:"message"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Repository persists notifications.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notification repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a notification.
func (r *Repository) Create(ctx context.Context, kind Kind, message string, payload interface{}) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO notifications (id, kind, message, payload)
		VALUES ($1, $2, $3, $4)`, uuid.New(), kind, message, encoded)
	return err
}

// ListUnread returns unread notifications, newest first.
func (r *Repository) ListUnread(ctx context.Context, limit int) ([]*Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, message, payload, read_at, created_at
		FROM notifications
		WHERE read_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Kind, &n.Message, &n.Payload, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, &n)
	}
	return results, rows.Err()
}

// MarkRead flags a notification as read.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read_at = now() WHERE id = $1 AND read_at IS NULL`, id)
	return err
}
