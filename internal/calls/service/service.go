// Package service schedules qualification calls behind the TCPA
// compliance gate and tier quotas.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"leadflow_backend/internal/calls/domain"
	callrepo "leadflow_backend/internal/calls/repository"
	"leadflow_backend/internal/email"
	domainevents "leadflow_backend/internal/events"
	leaddomain "leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/tasks"
	taskrepo "leadflow_backend/internal/tasks/repository"
	"leadflow_backend/internal/tiers"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

// OptInWindow is how far back page interactions count as an opt-in
// signal.
const OptInWindow = 30 * 24 * time.Hour

// LeadReader is the slice of the leads repository this feature needs.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*leaddomain.Lead, error)
	List(ctx context.Context, filter leadrepo.ListFilter) ([]*leaddomain.Lead, error)
	EngagementStats(ctx context.Context, leadID uuid.UUID) (*leaddomain.EngagementStats, error)
	HasRecentPageInteraction(ctx context.Context, leadID uuid.UUID, since time.Time) (bool, error)
	HasEngagementOfTypes(ctx context.Context, leadID uuid.UUID, types []leaddomain.EngagementType) (bool, error)
}

// TaskEnqueuer queues follow-up work for the background processor.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, params taskrepo.EnqueueParams) (*tasks.Task, error)
}

// CallStore is the slice of the calls repository the service needs.
type CallStore interface {
	Create(ctx context.Context, params callrepo.CreateParams) (*domain.Call, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Call, error)
	CountForOwnerMonth(ctx context.Context, ownerID uuid.UUID, at time.Time) (int, error)
	Start(ctx context.Context, id uuid.UUID) (*domain.Call, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, outcome string, notes *string) (*domain.Call, error)
	ListUpcoming(ctx context.Context, limit int) ([]*domain.Call, error)
}

// Service orchestrates call scheduling.
type Service struct {
	repo     CallStore
	leadRepo LeadReader
	registry *tiers.Registry
	enqueuer TaskEnqueuer
	sender   email.Sender
	bus      events.Bus
	log      *logger.Logger
}

// New creates a call service.
func New(repo CallStore, leadRepo LeadReader, registry *tiers.Registry, enqueuer TaskEnqueuer, sender email.Sender, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		leadRepo: leadRepo,
		registry: registry,
		enqueuer: enqueuer,
		sender:   sender,
		bus:      bus,
		log:      log,
	}
}

// contactSignals gathers the engagement-history inputs the compliance
// check needs: an opt-in signal (page interaction in the last thirty
// days, or any click or reply) and whether an unsubscribe exists.
func (s *Service) contactSignals(ctx context.Context, leadID uuid.UUID) (optIn, unsubscribed bool, err error) {
	unsubscribed, err = s.leadRepo.HasEngagementOfTypes(ctx, leadID, []leaddomain.EngagementType{
		leaddomain.EngagementUnsub,
	})
	if err != nil {
		return false, false, err
	}

	optIn, err = s.leadRepo.HasRecentPageInteraction(ctx, leadID, time.Now().UTC().Add(-OptInWindow))
	if err != nil {
		return false, false, err
	}
	if !optIn {
		optIn, err = s.leadRepo.HasEngagementOfTypes(ctx, leadID, []leaddomain.EngagementType{
			leaddomain.EngagementClicked,
			leaddomain.EngagementReplied,
		})
		if err != nil {
			return false, false, err
		}
	}
	return optIn, unsubscribed, nil
}

func leadLocation(lead *leaddomain.Lead) *time.Location {
	loc, err := time.LoadLocation(lead.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CheckCompliance evaluates the lead against all four calling
// requirements for the given time, defaulting to the optimal slot.
func (s *Service) CheckCompliance(ctx context.Context, leadID uuid.UUID, at *time.Time) (*domain.ComplianceResult, time.Time, error) {
	lead, err := s.leadRepo.GetByID(ctx, leadID)
	if err != nil {
		return nil, time.Time{}, err
	}

	scheduledAt, err := s.resolveTime(ctx, lead, at)
	if err != nil {
		return nil, time.Time{}, err
	}

	optIn, unsubscribed, err := s.contactSignals(ctx, leadID)
	if err != nil {
		return nil, time.Time{}, err
	}

	result := domain.CheckCompliance(domain.ComplianceInputs{
		Lead:         lead,
		OptInSignal:  optIn,
		Unsubscribed: unsubscribed,
		ScheduledAt:  scheduledAt,
		Location:     leadLocation(lead),
	})
	return &result, scheduledAt, nil
}

func (s *Service) resolveTime(ctx context.Context, lead *leaddomain.Lead, at *time.Time) (time.Time, error) {
	if at != nil {
		return at.UTC(), nil
	}
	return s.OptimalTime(ctx, lead)
}

// OptimalTimeForLead picks the best slot for the lead by ID.
func (s *Service) OptimalTimeForLead(ctx context.Context, leadID uuid.UUID) (time.Time, error) {
	lead, err := s.leadRepo.GetByID(ctx, leadID)
	if err != nil {
		return time.Time{}, err
	}
	return s.OptimalTime(ctx, lead)
}

// OptimalTime picks the best slot for the lead.
func (s *Service) OptimalTime(ctx context.Context, lead *leaddomain.Lead) (time.Time, error) {
	stats, err := s.leadRepo.EngagementStats(ctx, lead.ID)
	if err != nil {
		return time.Time{}, err
	}
	return domain.OptimalCallTime(lead.PreferredCallHour, stats.EngagementHours, time.Now().UTC(), leadLocation(lead)).UTC(), nil
}

// Schedule books a compliant call inside the lead's tier quota. The
// quota check runs first so a capped account never triggers compliance
// lookups or reminder tasks.
func (s *Service) Schedule(ctx context.Context, leadID uuid.UUID, requestedAt *time.Time, priority string) (*domain.Call, error) {
	lead, err := s.leadRepo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	limits := s.registry.Limits(tiers.Tier(lead.Tier))
	now := time.Now().UTC()
	used, err := s.repo.CountForOwnerMonth(ctx, lead.OwnerID, now)
	if err != nil {
		return nil, err
	}
	if used >= limits.MonthlyCalls {
		return nil, apperr.LimitExceeded(fmt.Sprintf("monthly call limit reached for %s tier (%d of %d used)", lead.Tier, used, limits.MonthlyCalls))
	}

	scheduledAt, err := s.resolveTime(ctx, lead, requestedAt)
	if err != nil {
		return nil, err
	}

	optIn, unsubscribed, err := s.contactSignals(ctx, leadID)
	if err != nil {
		return nil, err
	}
	compliance := domain.CheckCompliance(domain.ComplianceInputs{
		Lead:         lead,
		OptInSignal:  optIn,
		Unsubscribed: unsubscribed,
		ScheduledAt:  scheduledAt,
		Location:     leadLocation(lead),
	})
	if !compliance.Compliant {
		return nil, apperr.Compliance("lead cannot be called", compliance.Failures())
	}

	if priority == "" {
		priority = "medium"
	}

	snapshot, err := json.Marshal(compliance)
	if err != nil {
		return nil, err
	}
	call, err := s.repo.Create(ctx, callrepo.CreateParams{
		LeadID:       leadID,
		Priority:     priority,
		ScheduledAt:  scheduledAt,
		Timezone:     lead.Timezone,
		DurationMins: limits.CallDurationMins,
		Compliance:   snapshot,
		MaxAttempts:  limits.FollowUpAttempts,
	})
	if err != nil {
		return nil, err
	}

	s.scheduleReminders(ctx, call)
	s.bus.Publish(ctx, domainevents.NewCallScheduled(call.ID, leadID, scheduledAt))
	s.log.Info("call scheduled",
		"call_id", call.ID.String(),
		"lead_id", leadID.String(),
		"scheduled_at", scheduledAt.Format(time.RFC3339),
		"priority", priority,
	)
	return call, nil
}

// scheduleReminders queues the reminders that still lie in the future.
func (s *Service) scheduleReminders(ctx context.Context, call *domain.Call) {
	now := time.Now().UTC()
	for _, offset := range domain.ReminderOffsets {
		remindAt := call.ScheduledAt.Add(-offset.Before)
		if !remindAt.After(now) {
			continue
		}
		_, err := s.enqueuer.Enqueue(ctx, taskrepo.EnqueueParams{
			Type:        tasks.TypeSendReminder,
			Priority:    tasks.PriorityLow,
			Payload:     tasks.SendReminderPayload{CallID: call.ID, Label: offset.Label},
			ScheduledAt: remindAt,
			DedupeKey:   fmt.Sprintf("send_reminder:%s:%s", call.ID, offset.Label),
		})
		if err != nil {
			s.log.Error("queue call reminder failed", "call_id", call.ID.String(), "label", offset.Label, "error", err.Error())
		}
	}
}

// Get fetches a single call.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Call, error) {
	return s.repo.GetByID(ctx, id)
}

// Start marks a scheduled call as underway and consumes an attempt.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*domain.Call, error) {
	return s.repo.Start(ctx, id)
}

// Cancel stops a scheduled call and frees its quota slot.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.repo.Cancel(ctx, id)
}

// Complete settles a call with its outcome.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, outcome string, notes *string) (*domain.Call, error) {
	return s.repo.Complete(ctx, id, outcome, notes)
}

// ListUpcoming returns the scheduled calls, soonest first.
func (s *Service) ListUpcoming(ctx context.Context, limit int) ([]*domain.Call, error) {
	return s.repo.ListUpcoming(ctx, limit)
}

// CallQueue lists leads that are ready for a call, best score first.
func (s *Service) CallQueue(ctx context.Context, limit int) ([]*leaddomain.Lead, error) {
	ready := true
	results, err := s.leadRepo.List(ctx, leadrepo.ListFilter{ReadyForCall: &ready, Limit: limit})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

// =============================================================================
// Task handlers
// =============================================================================

// HandleScheduleCall is the queue handler that books a call for a
// promoted lead at its optimal time.
func (s *Service) HandleScheduleCall(ctx context.Context, task *tasks.Task) (interface{}, error) {
	var payload tasks.ScheduleCallPayload
	if err := tasks.DecodePayload(task, &payload); err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "malformed payload", err)
	}
	return s.Schedule(ctx, payload.LeadID, nil, payload.Priority)
}

// ReminderResult is stored on the task row after a reminder attempt.
type ReminderResult struct {
	CallID  string `json:"call_id"`
	Label   string `json:"label"`
	Sent    bool   `json:"sent"`
	Skipped string `json:"skipped,omitempty"`
}

// HandleSendReminder is the queue handler that emails one call
// reminder. Reminders for settled or past calls are silent no-ops.
func (s *Service) HandleSendReminder(ctx context.Context, task *tasks.Task) (interface{}, error) {
	var payload tasks.SendReminderPayload
	if err := tasks.DecodePayload(task, &payload); err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "malformed payload", err)
	}

	result := &ReminderResult{CallID: payload.CallID.String(), Label: payload.Label}

	call, err := s.repo.GetByID(ctx, payload.CallID)
	if err != nil {
		return nil, err
	}
	if call.Status != domain.StatusScheduled {
		result.Skipped = "call is " + string(call.Status)
		return result, nil
	}
	if call.ScheduledAt.Before(time.Now().UTC()) {
		result.Skipped = "call time has passed"
		return result, nil
	}

	lead, err := s.leadRepo.GetByID(ctx, call.LeadID)
	if err != nil {
		return nil, err
	}

	localTime := call.ScheduledAt.In(leadLocation(lead)).Format("Monday, January 2 at 3:04 PM")
	msg := email.Message{
		To:       lead.Email,
		Subject:  fmt.Sprintf("Reminder: your call is coming up (%s)", payload.Label),
		TextBody: fmt.Sprintf("Hi,\n\nA quick reminder about your upcoming call on %s.\n\nTalk soon!\n", localTime),
	}
	if lead.FirstName != nil {
		msg.ToName = *lead.FirstName
		msg.TextBody = fmt.Sprintf("Hi %s,\n\nA quick reminder about your upcoming call on %s.\n\nTalk soon!\n", *lead.FirstName, localTime)
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return nil, err
	}

	result.Sent = true
	return result, nil
}
