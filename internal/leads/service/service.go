// Package service implements lead lifecycle and scoring operations.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainevents "leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/scoring"
	"leadflow_backend/internal/tasks"
	taskrepo "leadflow_backend/internal/tasks/repository"
	"leadflow_backend/internal/tiers"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"

	"github.com/google/uuid"
)

// TaskEnqueuer queues follow-up work for the background processor.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, params taskrepo.EnqueueParams) (*tasks.Task, error)
}

// SequenceReader reports a lead's nurture sequence progress.
// Implemented by the sequences repository; wired at startup.
type SequenceReader interface {
	Progress(ctx context.Context, leadID uuid.UUID) (domain.SequenceProgress, error)
}

// Service orchestrates lead operations.
type Service struct {
	repo      *leadrepo.Repository
	enqueuer  TaskEnqueuer
	sequences SequenceReader
	registry  *tiers.Registry
	bus       events.Bus
	log       *logger.Logger
}

// New creates a lead service.
func New(repo *leadrepo.Repository, enqueuer TaskEnqueuer, sequences SequenceReader, registry *tiers.Registry, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		enqueuer:  enqueuer,
		sequences: sequences,
		registry:  registry,
		bus:       bus,
		log:       log,
	}
}

// Create registers a new lead and queues its first score computation.
func (s *Service) Create(ctx context.Context, params leadrepo.CreateParams) (*domain.Lead, error) {
	if !s.registry.Valid(tiers.Tier(params.Tier)) {
		return nil, apperr.Validation("unknown tier: " + params.Tier)
	}
	if params.Timezone == "" {
		params.Timezone = "America/New_York"
	}
	if _, err := time.LoadLocation(params.Timezone); err != nil {
		return nil, apperr.Validation("unknown timezone: " + params.Timezone)
	}
	if params.Phone != nil {
		normalized, ok := phone.Normalize(*params.Phone)
		if !ok {
			return nil, apperr.Validation("invalid phone number")
		}
		params.Phone = &normalized
	}
	if params.PreferredCallHour != nil && (*params.PreferredCallHour < 0 || *params.PreferredCallHour > 23) {
		return nil, apperr.Validation("preferred_call_hour must be between 0 and 23")
	}

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, err
	}

	_, err = s.enqueuer.Enqueue(ctx, taskrepo.EnqueueParams{
		Type:      tasks.TypeUpdateLeadScore,
		Priority:  tasks.PriorityMedium,
		Payload:   tasks.UpdateLeadScorePayload{LeadID: lead.ID},
		DedupeKey: scoreDedupeKey(lead.ID),
	})
	if err != nil {
		s.log.Error("queue initial score computation failed", "lead_id", lead.ID.String(), "error", err.Error())
	}

	return lead, nil
}

// Get fetches a single lead.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns leads matching the filter.
func (s *Service) List(ctx context.Context, filter leadrepo.ListFilter) ([]*domain.Lead, error) {
	return s.repo.List(ctx, filter)
}

// TrackEngagement records an interaction, applies its score delta, and
// recomputes the full score when the lead crosses into warm territory.
func (s *Service) TrackEngagement(ctx context.Context, leadID uuid.UUID, eventType domain.EngagementType, metadata json.RawMessage, occurredAt time.Time) (*domain.EngagementEvent, int, error) {
	if !eventType.Valid() {
		return nil, 0, apperr.Validation("unknown engagement type: " + string(eventType))
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, 0, err
	}

	// Delta uses the gap since the previous engagement, so read it
	// before RecordEngagement advances the timestamp.
	delta := scoring.Delta(eventType, lead.LastEngagementAt, occurredAt)

	event, err := s.repo.RecordEngagement(ctx, leadID, eventType, metadata, occurredAt)
	if err != nil {
		return nil, 0, err
	}

	newScore := lead.Score
	if delta != 0 {
		newScore, err = s.repo.ApplyScoreDelta(ctx, leadID, delta)
		if err != nil {
			return nil, 0, err
		}
	}

	s.bus.Publish(ctx, domainevents.NewEngagementTracked(leadID, string(eventType), newScore))

	s.queueEngagementFollowups(ctx, leadID, eventType, metadata)

	if newScore >= scoring.WarmThreshold && !lead.ReadyForCall {
		if _, err := s.RecalculateScore(ctx, leadID); err != nil {
			s.log.Error("score recomputation after engagement failed", "lead_id", leadID.String(), "error", err.Error())
		}
	}

	return event, newScore, nil
}

// queueEngagementFollowups schedules the summary refresh that follows
// any engagement, plus a traffic rollup when the event names a landing
// page. Both are deduplicated, so a burst of events queues one task.
func (s *Service) queueEngagementFollowups(ctx context.Context, leadID uuid.UUID, eventType domain.EngagementType, metadata json.RawMessage) {
	_, err := s.enqueuer.Enqueue(ctx, taskrepo.EnqueueParams{
		Type:        tasks.TypeCheckEngagement,
		Priority:    tasks.PriorityLow,
		Payload:     tasks.CheckEngagementPayload{LeadID: leadID},
		ScheduledAt: time.Now().UTC().Add(time.Hour),
		DedupeKey:   fmt.Sprintf("check_engagement:%s", leadID),
	})
	if err != nil {
		s.log.Error("queue engagement check failed", "lead_id", leadID.String(), "error", err.Error())
	}

	if eventType != domain.EngagementPageView && eventType != domain.EngagementFormSubmit {
		return
	}
	var meta struct {
		PageID string `json:"page_id"`
	}
	if len(metadata) == 0 || json.Unmarshal(metadata, &meta) != nil || meta.PageID == "" {
		return
	}
	now := time.Now().UTC()
	_, err = s.enqueuer.Enqueue(ctx, taskrepo.EnqueueParams{
		Type:        tasks.TypePageAnalytics,
		Priority:    tasks.PriorityLow,
		Payload:     tasks.PageAnalyticsPayload{PageID: meta.PageID},
		ScheduledAt: now.Add(24 * time.Hour),
		DedupeKey:   fmt.Sprintf("page_analytics:%s:%s", meta.PageID, now.Format("2006-01-02")),
	})
	if err != nil {
		s.log.Error("queue page analytics failed", "page_id", meta.PageID, "error", err.Error())
	}
}

// ScoreResult is the outcome of a full score computation.
type ScoreResult struct {
	LeadID    uuid.UUID         `json:"lead_id"`
	Score     int               `json:"score"`
	Breakdown scoring.Breakdown `json:"breakdown"`
	Category  domain.Category    `json:"category"`
	Promoted  bool              `json:"promoted"`
}

// RecalculateScore runs the full scoring model and promotes the lead
// when it qualifies. Promotion happens at most once per lead.
func (s *Service) RecalculateScore(ctx context.Context, leadID uuid.UUID) (*ScoreResult, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.EngagementStats(ctx, leadID)
	if err != nil {
		return nil, err
	}

	progress, err := s.sequences.Progress(ctx, leadID)
	if err != nil {
		return nil, err
	}

	breakdown := scoring.Compute(scoring.Inputs{
		Lead:     lead,
		Stats:    stats,
		Sequence: progress,
		Now:      time.Now().UTC(),
	})
	total := breakdown.Total()
	category := scoring.Categorize(total)

	encoded, err := json.Marshal(breakdown)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateScore(ctx, leadID, total, encoded, category); err != nil {
		return nil, err
	}

	result := &ScoreResult{
		LeadID:    leadID,
		Score:     total,
		Breakdown: breakdown,
		Category:  category,
	}

	if scoring.ShouldPromote(total) {
		promoted, err := s.repo.Promote(ctx, leadID)
		if err != nil {
			return nil, err
		}
		if promoted {
			result.Promoted = true
			s.onPromoted(ctx, leadID, total)
		}
	}

	return result, nil
}

func (s *Service) onPromoted(ctx context.Context, leadID uuid.UUID, score int) {
	priority := scoring.CallPriority(score)

	_, err := s.enqueuer.Enqueue(ctx, taskrepo.EnqueueParams{
		Type:        tasks.TypeScheduleCall,
		Priority:    tasks.Priority(priority),
		Payload:     tasks.ScheduleCallPayload{LeadID: leadID, Priority: priority},
		ScheduledAt: time.Now().UTC().Add(4 * time.Hour),
		DedupeKey:   fmt.Sprintf("schedule_call:%s", leadID),
	})
	if err != nil {
		s.log.Error("queue call scheduling failed", "lead_id", leadID.String(), "error", err.Error())
	}

	s.bus.Publish(ctx, domainevents.NewLeadPromoted(leadID, score, string(domain.CategoryWarm), priority))
	s.log.Info("lead promoted", "lead_id", leadID.String(), "score", score, "priority", priority)
}

// Insights describes a lead's score with actionable recommendations.
type Insights struct {
	LeadID         uuid.UUID         `json:"lead_id"`
	Score          int               `json:"score"`
	Category       domain.Category    `json:"category"`
	Breakdown      scoring.Breakdown `json:"breakdown"`
	ReadyForCall   bool              `json:"ready_for_call"`
	Recommendation string            `json:"recommendation"`
	Suggestions    []string          `json:"suggestions"`
}

// GetInsights recomputes the score and explains it.
func (s *Service) GetInsights(ctx context.Context, leadID uuid.UUID) (*Insights, error) {
	result, err := s.RecalculateScore(ctx, leadID)
	if err != nil {
		return nil, err
	}

	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	return &Insights{
		LeadID:         leadID,
		Score:          result.Score,
		Category:       result.Category,
		Breakdown:      result.Breakdown,
		ReadyForCall:   lead.ReadyForCall,
		Recommendation: recommendationFor(result.Score),
		Suggestions:    suggestionsFor(result.Breakdown),
	}, nil
}

func recommendationFor(score int) string {
	switch {
	case score >= 80:
		return "schedule a call immediately, this lead is sales-ready"
	case score >= 60:
		return "prioritize outreach, the lead is close to qualification"
	case score >= 40:
		return "continue nurturing with targeted content"
	default:
		return "keep the lead in the drip sequence and revisit later"
	}
}

func suggestionsFor(b scoring.Breakdown) []string {
	var suggestions []string
	if b.ProfileQuality < scoring.MaxProfileQuality/2 {
		suggestions = append(suggestions, "enrich the profile: company, title, and phone are the biggest gaps")
	}
	if b.Engagement < scoring.MaxEngagement/2 {
		suggestions = append(suggestions, "engagement is low, try a different content angle or send time")
	}
	if b.CompanyFit < scoring.MaxCompanyFit/2 {
		suggestions = append(suggestions, "company fit is weak, confirm size and industry before investing more")
	}
	if b.Timing == 0 {
		suggestions = append(suggestions, "no recent activity, a re-engagement email may revive the thread")
	}
	return suggestions
}

// QualifyResult summarizes a warm-lead sweep.
type QualifyResult struct {
	Examined int `json:"examined"`
	Promoted int `json:"promoted"`
}

// QualifyWarmLeads recomputes scores for cold leads already scoring 60
// or higher and promotes the ones that qualify. Capped at 100 leads
// per sweep.
func (s *Service) QualifyWarmLeads(ctx context.Context) (*QualifyResult, error) {
	candidates, err := s.repo.ListColdAboveScore(ctx, 60, 100)
	if err != nil {
		return nil, err
	}

	result := &QualifyResult{Examined: len(candidates)}
	for _, lead := range candidates {
		scored, err := s.RecalculateScore(ctx, lead.ID)
		if err != nil {
			s.log.Error("qualify sweep: score recomputation failed", "lead_id", lead.ID.String(), "error", err.Error())
			continue
		}
		if scored.Promoted {
			result.Promoted++
		}
	}

	s.log.Info("warm lead sweep complete", "examined", result.Examined, "promoted", result.Promoted)
	return result, nil
}

// EngagementSummary condenses a lead's interaction history into the
// shape stored on the lead row.
type EngagementSummary struct {
	TotalEvents      int        `json:"total_events"`
	Opens            int        `json:"opens"`
	Clicks           int        `json:"clicks"`
	Replies          int        `json:"replies"`
	Forwards         int        `json:"forwards"`
	PageViews        int        `json:"page_views"`
	Conversions      int        `json:"conversions"`
	LastEngagementAt *time.Time `json:"last_engagement_at,omitempty"`
	EventsPerWeek    float64    `json:"events_per_week"`
}

// buildEngagementSummary derives the stored summary from aggregate
// stats. Velocity is measured over the lead's full lifetime, with a
// one-week floor so young leads are not inflated.
func buildEngagementSummary(lead *domain.Lead, stats *domain.EngagementStats, now time.Time) EngagementSummary {
	weeks := now.Sub(lead.CreatedAt).Hours() / (24 * 7)
	if weeks < 1 {
		weeks = 1
	}
	return EngagementSummary{
		TotalEvents:      stats.TotalEvents,
		Opens:            stats.Opens,
		Clicks:           stats.Clicks,
		Replies:          stats.Replies,
		Forwards:         stats.Forwards,
		PageViews:        stats.PageViews,
		Conversions:      stats.Conversions,
		LastEngagementAt: lead.LastEngagementAt,
		EventsPerWeek:    float64(stats.TotalEvents) / weeks,
	}
}

// CheckEngagement recomputes the lead's engagement summary and stores
// it on the lead row.
func (s *Service) CheckEngagement(ctx context.Context, leadID uuid.UUID) (*EngagementSummary, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.EngagementStats(ctx, leadID)
	if err != nil {
		return nil, err
	}

	summary := buildEngagementSummary(lead, stats, time.Now().UTC())
	encoded, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateEngagementSummary(ctx, leadID, encoded); err != nil {
		return nil, err
	}
	return &summary, nil
}

// PageMetrics reports one landing page's traffic over the last day.
type PageMetrics struct {
	PageID         string  `json:"page_id"`
	Views          int     `json:"views"`
	Submissions    int     `json:"submissions"`
	UniqueLeads    int     `json:"unique_leads"`
	ConversionRate float64 `json:"conversion_rate"`
}

func pageMetricsFrom(pageID string, traffic *leadrepo.PageTraffic) PageMetrics {
	m := PageMetrics{
		PageID:      pageID,
		Views:       traffic.Views,
		Submissions: traffic.Submissions,
		UniqueLeads: traffic.UniqueLeads,
	}
	if traffic.Views > 0 {
		m.ConversionRate = float64(traffic.Submissions) / float64(traffic.Views)
	}
	return m
}

// PageAnalytics aggregates the last 24 hours of a landing page's
// views and form submissions.
func (s *Service) PageAnalytics(ctx context.Context, pageID string) (*PageMetrics, error) {
	if pageID == "" {
		return nil, apperr.Validation("page id is required")
	}
	traffic, err := s.repo.PageTrafficSince(ctx, pageID, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	metrics := pageMetricsFrom(pageID, traffic)
	s.log.Info("page analytics computed", "page_id", pageID, "views", metrics.Views, "submissions", metrics.Submissions)
	return &metrics, nil
}

// =============================================================================
// Task handlers
// =============================================================================

// HandleUpdateLeadScore is the queue handler for score recomputation.
func (s *Service) HandleUpdateLeadScore(ctx context.Context, task *tasks.Task) (interface{}, error) {
	var payload tasks.UpdateLeadScorePayload
	if err := tasks.DecodePayload(task, &payload); err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "malformed payload", err)
	}
	return s.RecalculateScore(ctx, payload.LeadID)
}

// HandleQualifyWarmLeads is the queue handler for the periodic sweep.
func (s *Service) HandleQualifyWarmLeads(ctx context.Context, _ *tasks.Task) (interface{}, error) {
	return s.QualifyWarmLeads(ctx)
}

// HandleCheckEngagement is the queue handler for the summary refresh.
func (s *Service) HandleCheckEngagement(ctx context.Context, task *tasks.Task) (interface{}, error) {
	var payload tasks.CheckEngagementPayload
	if err := tasks.DecodePayload(task, &payload); err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "malformed payload", err)
	}
	return s.CheckEngagement(ctx, payload.LeadID)
}

// HandlePageAnalytics is the queue handler for the landing page rollup.
func (s *Service) HandlePageAnalytics(ctx context.Context, task *tasks.Task) (interface{}, error) {
	var payload tasks.PageAnalyticsPayload
	if err := tasks.DecodePayload(task, &payload); err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "malformed payload", err)
	}
	return s.PageAnalytics(ctx, payload.PageID)
}

func scoreDedupeKey(leadID uuid.UUID) string {
	return fmt.Sprintf("update_lead_score:%s", leadID)
}
