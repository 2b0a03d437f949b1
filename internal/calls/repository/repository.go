// Package repository persists scheduled calls.
package repository

import (
	"context"
	"errors"
	"time"

	"leadflow_backend/internal/calls/domain"
	"leadflow_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides access to the calls table.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a call repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const callColumns = `
	id, lead_id, status, priority, scheduled_at, timezone, duration_mins,
	compliance, attempts, max_attempts,
	outcome, notes, completed_at, cancelled_at, created_at, updated_at`

func scanCall(row pgx.Row) (*domain.Call, error) {
	var c domain.Call
	err := row.Scan(
		&c.ID, &c.LeadID, &c.Status, &c.Priority, &c.ScheduledAt, &c.Timezone, &c.DurationMins,
		&c.Compliance, &c.Attempts, &c.MaxAttempts,
		&c.Outcome, &c.Notes, &c.CompletedAt, &c.CancelledAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateParams describes a call to book. Compliance carries the
// verdict the scheduling decision was made under.
type CreateParams struct {
	LeadID       uuid.UUID
	Priority     string
	ScheduledAt  time.Time
	Timezone     string
	DurationMins int
	Compliance   []byte
	MaxAttempts  int
}

// Create books a call.
func (r *Repository) Create(ctx context.Context, params CreateParams) (*domain.Call, error) {
	query := `
		INSERT INTO calls (id, lead_id, status, priority, scheduled_at, timezone, duration_mins, compliance, max_attempts)
		VALUES ($1, $2, 'scheduled', $3, $4, $5, $6, $7, $8)
		RETURNING ` + callColumns

	return scanCall(r.pool.QueryRow(ctx, query,
		uuid.New(), params.LeadID, params.Priority, params.ScheduledAt,
		params.Timezone, params.DurationMins, params.Compliance, params.MaxAttempts,
	))
}

// GetByID fetches a single call.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls WHERE id = $1`
	call, err := scanCall(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("call not found")
	}
	return call, err
}

// CountForOwnerMonth counts the owner's non-cancelled calls across all
// their leads in the month containing at. Cancelled calls give the
// slot back.
func (r *Repository) CountForOwnerMonth(ctx context.Context, ownerID uuid.UUID, at time.Time) (int, error) {
	monthStart := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM calls c
		JOIN leads l ON l.id = c.lead_id
		WHERE l.owner_id = $1
		  AND c.status IN ('scheduled', 'in_progress', 'completed', 'no_show')
		  AND c.scheduled_at >= $2 AND c.scheduled_at < $3`,
		ownerID, monthStart, monthEnd).Scan(&count)
	return count, err
}

// Start moves a scheduled call to in_progress and burns one attempt.
func (r *Repository) Start(ctx context.Context, id uuid.UUID) (*domain.Call, error) {
	query := `
		UPDATE calls SET
			status = 'in_progress',
			attempts = attempts + 1,
			updated_at = now()
		WHERE id = $1 AND status = 'scheduled' AND attempts < max_attempts
		RETURNING ` + callColumns

	call, err := scanCall(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if existing.Attempts >= existing.MaxAttempts {
			return nil, apperr.Conflict("call has no attempts left")
		}
		return nil, apperr.Conflict("only scheduled calls can be started, call is " + string(existing.Status))
	}
	return call, err
}

// Cancel stops a scheduled call.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE calls SET
			status = 'cancelled',
			cancelled_at = now(),
			updated_at = now()
		WHERE id = $1 AND status = 'scheduled'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("only scheduled calls can be cancelled")
	}
	return nil
}

// Complete settles a scheduled or in-progress call with its outcome.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID, outcome string, notes *string) (*domain.Call, error) {
	query := `
		UPDATE calls SET
			status = CASE WHEN $2 = 'no_show' THEN 'no_show' ELSE 'completed' END,
			outcome = $2,
			notes = $3,
			completed_at = now(),
			updated_at = now()
		WHERE id = $1 AND status IN ('scheduled', 'in_progress')
		RETURNING ` + callColumns

	call, err := scanCall(r.pool.QueryRow(ctx, query, id, outcome, notes))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Conflict("only scheduled or in-progress calls can be completed")
	}
	return call, err
}

// ListUpcoming returns scheduled calls ordered soonest first.
func (r *Repository) ListUpcoming(ctx context.Context, limit int) ([]*domain.Call, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+callColumns+`
		FROM calls
		WHERE status = 'scheduled'
		ORDER BY scheduled_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, call)
	}
	return results, rows.Err()
}
