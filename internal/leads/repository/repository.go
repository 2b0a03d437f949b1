// Package repository persists leads and their engagement history.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides access to the leads and engagement_events tables.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a lead repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `
	id, owner_id, email, phone, first_name, last_name, company, title, linkedin_url,
	industry, company_size, source, tier, status, score, score_breakdown,
	category, ready_for_call, consent_recorded, preferred_call_hour,
	timezone, last_engagement_at, engagement_summary, engagement_checked_at,
	created_at, updated_at`

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var l domain.Lead
	err := row.Scan(
		&l.ID, &l.OwnerID, &l.Email, &l.Phone, &l.FirstName, &l.LastName, &l.Company, &l.Title, &l.LinkedInURL,
		&l.Industry, &l.CompanySize, &l.Source, &l.Tier, &l.Status, &l.Score, &l.ScoreBreakdown,
		&l.Category, &l.ReadyForCall, &l.ConsentRecorded, &l.PreferredCallHour,
		&l.Timezone, &l.LastEngagementAt, &l.EngagementSummary, &l.EngagementCheckedAt,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateParams describes a new lead.
type CreateParams struct {
	OwnerID           uuid.UUID
	Email             string
	Phone             *string
	FirstName         *string
	LastName          *string
	Company           *string
	Title             *string
	LinkedInURL       *string
	Industry          *string
	CompanySize       *string
	Source            *string
	Tier              string
	ConsentRecorded   bool
	PreferredCallHour *int
	Timezone          string
}

// Create inserts a new cold lead.
func (r *Repository) Create(ctx context.Context, params CreateParams) (*domain.Lead, error) {
	query := `
		INSERT INTO leads (
			id, owner_id, email, phone, first_name, last_name, company, title, linkedin_url,
			industry, company_size, source, tier, status, category,
			consent_recorded, preferred_call_hour, timezone
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 'cold', 'cold', $14, $15, $16)
		RETURNING ` + leadColumns

	lead, err := scanLead(r.pool.QueryRow(ctx, query,
		uuid.New(), params.OwnerID, params.Email, params.Phone, params.FirstName, params.LastName,
		params.Company, params.Title, params.LinkedInURL, params.Industry,
		params.CompanySize, params.Source, params.Tier,
		params.ConsentRecorded, params.PreferredCallHour, params.Timezone,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("a lead with this email already exists")
		}
		return nil, err
	}
	return lead, nil
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23505"
}

// GetByID fetches a single lead.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	lead, err := scanLead(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("lead not found")
	}
	return lead, err
}

// ListFilter narrows List results.
type ListFilter struct {
	Status       domain.Status
	Category     domain.Category
	ReadyForCall *bool
	MinScore     *int
	Limit        int
	Offset       int
}

// List returns leads matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]*domain.Lead, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR category = $2)
		  AND ($3::boolean IS NULL OR ready_for_call = $3)
		  AND ($4::int IS NULL OR score >= $4)
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6`

	rows, err := r.pool.Query(ctx, query,
		string(filter.Status), string(filter.Category), filter.ReadyForCall,
		filter.MinScore, filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, lead)
	}
	return results, rows.Err()
}

// UpdateScore stores a recomputed score, breakdown, and category.
func (r *Repository) UpdateScore(ctx context.Context, id uuid.UUID, score int, breakdown json.RawMessage, category domain.Category) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			score = LEAST(100, GREATEST(0, $2)),
			score_breakdown = $3,
			category = $4,
			updated_at = now()
		WHERE id = $1`, id, score, breakdown, category)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("lead not found")
	}
	return nil
}

// ApplyScoreDelta atomically adjusts the score, clamped to 0..100, and
// returns the new value.
func (r *Repository) ApplyScoreDelta(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	var newScore int
	err := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			score = LEAST(100, GREATEST(0, score + $2)),
			updated_at = now()
		WHERE id = $1
		RETURNING score`, id, delta).Scan(&newScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.NotFound("lead not found")
	}
	return newScore, err
}

// Promote marks a lead warm and ready for a call. Returns false when
// the lead was already promoted, so promotion side effects run once.
func (r *Repository) Promote(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			status = 'warm',
			ready_for_call = TRUE,
			updated_at = now()
		WHERE id = $1 AND ready_for_call = FALSE`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateStatus moves a lead to a new lifecycle state.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("lead not found")
	}
	return nil
}

// ListColdAboveScore returns cold leads whose score already warrants
// promotion, oldest first, capped at limit.
func (r *Repository) ListColdAboveScore(ctx context.Context, minScore, limit int) ([]*domain.Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE status = 'cold' AND score >= $1
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, minScore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, lead)
	}
	return results, rows.Err()
}

// RecordEngagement inserts an engagement event and bumps the lead's
// last engagement timestamp.
func (r *Repository) RecordEngagement(ctx context.Context, leadID uuid.UUID, eventType domain.EngagementType, metadata json.RawMessage, occurredAt time.Time) (*domain.EngagementEvent, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var event domain.EngagementEvent
	err = tx.QueryRow(ctx, `
		INSERT INTO engagement_events (id, lead_id, event_type, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, lead_id, event_type, metadata, occurred_at`,
		uuid.New(), leadID, eventType, metadata, occurredAt,
	).Scan(&event.ID, &event.LeadID, &event.Type, &event.Metadata, &event.OccurredAt)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE leads SET
			last_engagement_at = GREATEST(coalesce(last_engagement_at, $2), $2),
			updated_at = now()
		WHERE id = $1`, leadID, occurredAt)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.NotFound("lead not found")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &event, nil
}

// EngagementStats aggregates a lead's interaction history for scoring.
func (r *Repository) EngagementStats(ctx context.Context, leadID uuid.UUID) (*domain.EngagementStats, error) {
	query := `
		SELECT
			count(*) FILTER (WHERE event_type = 'opened'),
			count(*) FILTER (WHERE event_type = 'clicked'),
			count(*) FILTER (WHERE event_type = 'replied'),
			count(*) FILTER (WHERE event_type = 'forwarded'),
			count(*) FILTER (WHERE event_type = 'page_view'),
			count(*) FILTER (WHERE event_type IN ('form_submit', 'download')),
			count(*) FILTER (WHERE event_type = 'replied'
				AND (metadata->>'response_minutes')::int <= 60),
			count(*) FILTER (WHERE event_type = 'page_view'
				AND (metadata->>'dwell_seconds')::int >= 120),
			count(*)
		FROM engagement_events
		WHERE lead_id = $1`

	var stats domain.EngagementStats
	err := r.pool.QueryRow(ctx, query, leadID).Scan(
		&stats.Opens, &stats.Clicks, &stats.Replies, &stats.Forwards,
		&stats.PageViews, &stats.Conversions, &stats.FastResponses,
		&stats.LongDwellPages, &stats.TotalEvents,
	)
	if err != nil {
		return nil, err
	}

	hours, err := r.engagementHours(ctx, leadID)
	if err != nil {
		return nil, err
	}
	stats.EngagementHours = hours
	return &stats, nil
}

// engagementHours lists the lead-local hour of day of each engagement,
// used to pick the optimal call time.
func (r *Repository) engagementHours(ctx context.Context, leadID uuid.UUID) ([]int, error) {
	query := `
		SELECT EXTRACT(HOUR FROM e.occurred_at AT TIME ZONE l.timezone)::int
		FROM engagement_events e
		JOIN leads l ON l.id = e.lead_id
		WHERE e.lead_id = $1
		ORDER BY e.occurred_at DESC
		LIMIT 100`

	rows, err := r.pool.Query(ctx, query, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hours []int
	for rows.Next() {
		var h int
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

// UpdateEngagementSummary stores a freshly computed engagement summary
// on the lead.
func (r *Repository) UpdateEngagementSummary(ctx context.Context, id uuid.UUID, summary json.RawMessage) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			engagement_summary = $2,
			engagement_checked_at = now(),
			updated_at = now()
		WHERE id = $1`, id, summary)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("lead not found")
	}
	return nil
}

// PageTraffic aggregates one landing page's recent interactions.
type PageTraffic struct {
	Views       int
	Submissions int
	UniqueLeads int
}

// PageTrafficSince tallies page views and form submissions whose
// metadata names the given landing page, from since onward.
func (r *Repository) PageTrafficSince(ctx context.Context, pageID string, since time.Time) (*PageTraffic, error) {
	query := `
		SELECT
			count(*) FILTER (WHERE event_type = 'page_view'),
			count(*) FILTER (WHERE event_type = 'form_submit'),
			count(DISTINCT lead_id)
		FROM engagement_events
		WHERE metadata->>'page_id' = $1 AND occurred_at >= $2`

	var t PageTraffic
	err := r.pool.QueryRow(ctx, query, pageID, since).Scan(&t.Views, &t.Submissions, &t.UniqueLeads)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// HasRecentPageInteraction reports whether the lead viewed a page or
// submitted a form within the window.
func (r *Repository) HasRecentPageInteraction(ctx context.Context, leadID uuid.UUID, since time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM engagement_events
			WHERE lead_id = $1
			  AND event_type IN ('page_view', 'form_submit')
			  AND occurred_at >= $2
		)`, leadID, since).Scan(&exists)
	return exists, err
}

// HasEngagementOfTypes reports whether the lead has ever produced one
// of the given engagement types.
func (r *Repository) HasEngagementOfTypes(ctx context.Context, leadID uuid.UUID, types []domain.EngagementType) (bool, error) {
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM engagement_events
			WHERE lead_id = $1 AND event_type = ANY($2)
		)`, leadID, typeNames).Scan(&exists)
	return exists, err
}
