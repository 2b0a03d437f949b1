// Package repository persists queue tasks in Postgres.
package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"leadflow_backend/internal/tasks"
	"leadflow_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides access to the tasks table.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a task repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const taskColumns = `
	id, task_type, status, priority, payload, dedupe_key,
	scheduled_at, started_at, completed_at,
	retry_count, max_retries, last_error, result,
	created_at, updated_at`

func scanTask(row pgx.Row) (*tasks.Task, error) {
	var t tasks.Task
	err := row.Scan(
		&t.ID, &t.Type, &t.Status, &t.Priority, &t.Payload, &t.DedupeKey,
		&t.ScheduledAt, &t.StartedAt, &t.CompletedAt,
		&t.RetryCount, &t.MaxRetries, &t.LastError, &t.Result,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// EnqueueParams describes a task to insert.
type EnqueueParams struct {
	Type        tasks.Type
	Priority    tasks.Priority
	Payload     interface{}
	ScheduledAt time.Time
	DedupeKey   string // optional; duplicate keys among unsettled tasks are skipped
}

// Enqueue inserts a pending task. When DedupeKey is set and an
// unsettled task with the same key already exists, the insert is a
// no-op and the existing task is returned.
func (r *Repository) Enqueue(ctx context.Context, params EnqueueParams) (*tasks.Task, error) {
	if !params.Type.Valid() {
		return nil, apperr.Validation("unknown task type: " + string(params.Type))
	}
	if !params.Priority.Valid() {
		params.Priority = tasks.PriorityMedium
	}
	if params.ScheduledAt.IsZero() {
		params.ScheduledAt = time.Now().UTC()
	}

	payload, err := tasks.EncodePayload(params.Payload)
	if err != nil {
		return nil, err
	}

	var dedupeKey *string
	if params.DedupeKey != "" {
		dedupeKey = &params.DedupeKey
	}

	query := `
		INSERT INTO tasks (id, task_type, status, priority, payload, dedupe_key, scheduled_at, max_retries)
		VALUES ($1, $2, 'pending', $3, $4, $5, $6, $7)
		ON CONFLICT (dedupe_key) WHERE status IN ('pending', 'in_progress') DO NOTHING
		RETURNING ` + taskColumns

	task, err := scanTask(r.pool.QueryRow(ctx, query,
		uuid.New(), params.Type, params.Priority, payload, dedupeKey, params.ScheduledAt, tasks.MaxRetries,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict path: an unsettled task with this key is already queued.
		return r.findByDedupeKey(ctx, params.DedupeKey)
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *Repository) findByDedupeKey(ctx context.Context, key string) (*tasks.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE dedupe_key = $1 AND status IN ('pending', 'in_progress')
		ORDER BY created_at DESC
		LIMIT 1`
	task, err := scanTask(r.pool.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("task not found")
	}
	return task, err
}

// GetByID fetches a single task.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*tasks.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("task not found")
	}
	return task, err
}

// ClaimBatch atomically moves up to limit ready tasks from pending to
// in_progress and returns them ordered highest-priority-first,
// oldest-first.
// SKIP LOCKED keeps concurrent workers from claiming the same rows.
func (r *Repository) ClaimBatch(ctx context.Context, limit int) ([]*tasks.Task, error) {
	query := `
		UPDATE tasks SET
			status = 'in_progress',
			started_at = now(),
			updated_at = now()
		WHERE id IN (
			SELECT id FROM tasks
			WHERE status = 'pending' AND scheduled_at <= now()
			ORDER BY
				CASE priority
					WHEN 'high' THEN 3
					WHEN 'medium' THEN 2
					WHEN 'low' THEN 1
					ELSE 0
				END DESC,
				scheduled_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + taskColumns

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claimed []*tasks.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// UPDATE ... RETURNING does not preserve the subquery order.
	sortByPriority(claimed)
	return claimed, nil
}

func sortByPriority(batch []*tasks.Task) {
	rank := map[tasks.Priority]int{
		tasks.PriorityHigh:   3,
		tasks.PriorityMedium: 2,
		tasks.PriorityLow:    1,
	}
	sort.SliceStable(batch, func(i, j int) bool {
		if rank[batch[i].Priority] != rank[batch[j].Priority] {
			return rank[batch[i].Priority] > rank[batch[j].Priority]
		}
		return batch[i].ScheduledAt.Before(batch[j].ScheduledAt)
	})
}

// MarkCompleted settles a task successfully, storing the handler result.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, result interface{}) error {
	encoded, err := tasks.EncodePayload(result)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET
			status = 'completed',
			completed_at = now(),
			result = $2,
			last_error = NULL,
			updated_at = now()
		WHERE id = $1 AND status = 'in_progress'`, id, encoded)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("task is not in progress")
	}
	return nil
}

// MarkForRetry returns a failed attempt to pending with a backoff delay.
func (r *Repository) MarkForRetry(ctx context.Context, id uuid.UUID, retryCount int, delay time.Duration, lastError string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE tasks SET
			status = 'pending',
			retry_count = $2,
			scheduled_at = now() + $3,
			last_error = $4,
			started_at = NULL,
			updated_at = now()
		WHERE id = $1 AND status = 'in_progress'`, id, retryCount, delay, lastError)
	return err
}

// MarkFailed settles a task as permanently failed.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, retryCount int, lastError string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE tasks SET
			status = 'failed',
			retry_count = $2,
			completed_at = now(),
			last_error = $3,
			updated_at = now()
		WHERE id = $1 AND status = 'in_progress'`, id, retryCount, lastError)
	return err
}

// Cancel withdraws a task that has not been claimed yet. Anything past
// pending is already running or settled and keeps its state.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) (*tasks.Task, error) {
	query := `
		UPDATE tasks SET
			status = 'cancelled',
			completed_at = now(),
			updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + taskColumns

	task, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, apperr.Conflict("only pending tasks can be cancelled, task is " + string(existing.Status))
	}
	return task, err
}

// ResetForManualRetry puts a failed task back in the queue with a fresh
// retry budget.
func (r *Repository) ResetForManualRetry(ctx context.Context, id uuid.UUID) (*tasks.Task, error) {
	query := `
		UPDATE tasks SET
			status = 'pending',
			retry_count = 0,
			scheduled_at = now(),
			started_at = NULL,
			completed_at = NULL,
			last_error = NULL,
			updated_at = now()
		WHERE id = $1 AND status = 'failed'
		RETURNING ` + taskColumns

	task, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, apperr.Conflict("only failed tasks can be retried, task is " + string(existing.Status))
	}
	return task, err
}

// StatusCounts is the per-state tally of the queue.
type StatusCounts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

// QueueSummary is the queue-status overview: the grand total, the
// per-state tally, and how many pending tasks are already past due.
type QueueSummary struct {
	TotalTasks   int          `json:"total_tasks"`
	ByStatus     StatusCounts `json:"by_status"`
	OverdueTasks int          `json:"overdue_tasks"`
}

// Summary computes the queue-status overview in one pass.
func (r *Repository) Summary(ctx context.Context) (*QueueSummary, error) {
	query := `
		SELECT
			count(*),
			count(*) FILTER (WHERE status = 'pending'),
			count(*) FILTER (WHERE status = 'in_progress'),
			count(*) FILTER (WHERE status = 'completed'),
			count(*) FILTER (WHERE status = 'failed'),
			count(*) FILTER (WHERE status = 'cancelled'),
			count(*) FILTER (WHERE status = 'pending' AND scheduled_at < now())
		FROM tasks`

	var s QueueSummary
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.TotalTasks,
		&s.ByStatus.Pending, &s.ByStatus.InProgress, &s.ByStatus.Completed,
		&s.ByStatus.Failed, &s.ByStatus.Cancelled,
		&s.OverdueTasks,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// TypeStatistics summarizes throughput for one task type.
type TypeStatistics struct {
	Type          tasks.Type `json:"task_type"`
	Total         int        `json:"total"`
	Completed     int        `json:"completed"`
	Failed        int        `json:"failed"`
	AvgDurationMS *float64   `json:"avg_duration_ms,omitempty"`
}

// StatisticsSince aggregates completion counts and average run time per
// task type for tasks created after since.
func (r *Repository) StatisticsSince(ctx context.Context, since time.Time) ([]TypeStatistics, error) {
	query := `
		SELECT
			task_type,
			count(*),
			count(*) FILTER (WHERE status = 'completed'),
			count(*) FILTER (WHERE status = 'failed'),
			avg(EXTRACT(EPOCH FROM (completed_at - started_at)) * 1000)
				FILTER (WHERE status = 'completed' AND started_at IS NOT NULL)
		FROM tasks
		WHERE created_at >= $1
		GROUP BY task_type
		ORDER BY task_type`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []TypeStatistics
	for rows.Next() {
		var s TypeStatistics
		if err := rows.Scan(&s.Type, &s.Total, &s.Completed, &s.Failed, &s.AvgDurationMS); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// ListRecent returns the most recently updated tasks, optionally
// filtered by status.
func (r *Repository) ListRecent(ctx context.Context, status tasks.Status, limit int) ([]*tasks.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE ($1 = '' OR status = $1)
		ORDER BY updated_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*tasks.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, task)
	}
	return results, rows.Err()
}

// DeleteSettledBefore removes completed, failed, and cancelled tasks
// older than cutoff.
func (r *Repository) DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM tasks
		WHERE status IN ('completed', 'failed', 'cancelled') AND completed_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ReleaseStuck returns in_progress tasks that started before cutoff to
// pending so a crashed worker cannot strand them.
func (r *Repository) ReleaseStuck(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET
			status = 'pending',
			started_at = NULL,
			last_error = 'released: worker did not settle the task',
			updated_at = now()
		WHERE status = 'in_progress' AND started_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
