// Package repository persists nurture sequences and their email logs.
package repository

import (
	"context"
	"errors"
	"time"

	leaddomain "leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/sequences/domain"
	"leadflow_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides access to the sequences and email_logs tables.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a sequence repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sequenceColumns = `
	id, lead_id, sequence_type, status, current_step, total_steps,
	started_at, completed_at, created_at, updated_at`

func scanSequence(row pgx.Row) (*domain.Sequence, error) {
	var s domain.Sequence
	err := row.Scan(
		&s.ID, &s.LeadID, &s.Type, &s.Status, &s.CurrentStep, &s.TotalSteps,
		&s.StartedAt, &s.CompletedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create starts a new active sequence. The partial unique index on
// (lead_id) WHERE status = 'active' rejects a second concurrent run.
func (r *Repository) Create(ctx context.Context, leadID uuid.UUID, seqType domain.Type) (*domain.Sequence, error) {
	query := `
		INSERT INTO sequences (id, lead_id, sequence_type, status, current_step, total_steps, started_at)
		VALUES ($1, $2, $3, 'active', 0, $4, now())
		RETURNING ` + sequenceColumns

	seq, err := scanSequence(r.pool.QueryRow(ctx, query, uuid.New(), leadID, seqType, domain.StepsFor(seqType)))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("lead already has an active sequence")
		}
		return nil, err
	}
	return seq, nil
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23505"
}

// GetByID fetches a single sequence.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Sequence, error) {
	query := `SELECT ` + sequenceColumns + ` FROM sequences WHERE id = $1`
	seq, err := scanSequence(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("sequence not found")
	}
	return seq, err
}

// GetActiveByLead fetches the lead's active sequence, if any.
func (r *Repository) GetActiveByLead(ctx context.Context, leadID uuid.UUID) (*domain.Sequence, error) {
	query := `SELECT ` + sequenceColumns + ` FROM sequences WHERE lead_id = $1 AND status = 'active'`
	seq, err := scanSequence(r.pool.QueryRow(ctx, query, leadID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("no active sequence for lead")
	}
	return seq, err
}

// Progress reports the lead's sequence position for scoring. A lead
// without an active sequence yields the zero value, not an error.
func (r *Repository) Progress(ctx context.Context, leadID uuid.UUID) (leaddomain.SequenceProgress, error) {
	seq, err := r.GetActiveByLead(ctx, leadID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return leaddomain.SequenceProgress{}, nil
		}
		return leaddomain.SequenceProgress{}, err
	}
	return leaddomain.SequenceProgress{
		Active:      true,
		CurrentStep: seq.CurrentStep,
		TotalSteps:  seq.TotalSteps,
	}, nil
}

// AdvanceStep records that step was delivered, moving current_step
// forward. current_step never exceeds total_steps or moves backward.
func (r *Repository) AdvanceStep(ctx context.Context, id uuid.UUID, step int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sequences SET
			current_step = LEAST(total_steps, GREATEST(current_step, $2)),
			updated_at = now()
		WHERE id = $1 AND status = 'active'`, id, step)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("sequence is not active")
	}
	return nil
}

// Complete settles an active sequence. Returns false when the sequence
// was already settled, so completion side effects run exactly once.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sequences SET
			status = 'completed',
			completed_at = now(),
			updated_at = now()
		WHERE id = $1 AND status = 'active'`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Cancel stops an active sequence.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sequences SET
			status = 'cancelled',
			updated_at = now()
		WHERE id = $1 AND status = 'active'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("sequence is not active")
	}
	return nil
}

// RecordEmail logs a delivered step. Returns false when the step was
// already logged, which makes redelivery a no-op.
func (r *Repository) RecordEmail(ctx context.Context, sequenceID, leadID uuid.UUID, step int, subject string, sentAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO email_logs (id, sequence_id, lead_id, step_number, subject, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sequence_id, step_number) DO NOTHING`,
		uuid.New(), sequenceID, leadID, step, subject, sentAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// StepAlreadySent reports whether the step was previously delivered.
func (r *Repository) StepAlreadySent(ctx context.Context, sequenceID uuid.UUID, step int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM email_logs WHERE sequence_id = $1 AND step_number = $2
		)`, sequenceID, step).Scan(&exists)
	return exists, err
}

// ListEmails returns the delivery log for a sequence in step order.
func (r *Repository) ListEmails(ctx context.Context, sequenceID uuid.UUID) ([]*domain.EmailLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sequence_id, lead_id, step_number, subject, sent_at
		FROM email_logs
		WHERE sequence_id = $1
		ORDER BY step_number`, sequenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.EmailLog
	for rows.Next() {
		var l domain.EmailLog
		if err := rows.Scan(&l.ID, &l.SequenceID, &l.LeadID, &l.StepNumber, &l.Subject, &l.SentAt); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
