// Package service orchestrates nurture sequences: starting runs,
// delivering steps, and scheduling the next one.
package service

import (
	"context"
	"fmt"
	"time"

	"leadflow_backend/internal/email"
	domainevents "leadflow_backend/internal/events"
	leaddomain "leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/sequences/domain"
	seqrepo "leadflow_backend/internal/sequences/repository"
	"leadflow_backend/internal/tasks"
	taskrepo "leadflow_backend/internal/tasks/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadReader fetches leads for step rendering.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*leaddomain.Lead, error)
}

// TaskEnqueuer queues follow-up work for the background processor.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, params taskrepo.EnqueueParams) (*tasks.Task, error)
}

// Service orchestrates sequences.
type Service struct {
	repo     *seqrepo.Repository
	leadRepo LeadReader
	sender   email.Sender
	enqueuer TaskEnqueuer
	bus      events.Bus
	log      *logger.Logger
}

// New creates a sequence service.
func New(repo *seqrepo.Repository, leadRepo LeadReader, sender email.Sender, enqueuer TaskEnqueuer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		leadRepo: leadRepo,
		sender:   sender,
		enqueuer: enqueuer,
		bus:      bus,
		log:      log,
	}
}

// Start begins a nurture sequence for the lead. The track and step
// count come from the lead's subscription tier; step one goes out
// through the queue immediately.
func (s *Service) Start(ctx context.Context, leadID uuid.UUID) (*domain.Sequence, error) {
	lead, err := s.leadRepo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	seqType := domain.TypeForTier(lead.Tier)
	seq, err := s.repo.Create(ctx, leadID, seqType)
	if err != nil {
		return nil, err
	}

	if err := s.enqueueStep(ctx, seq.ID, 1, time.Now().UTC()); err != nil {
		s.log.Error("queue first sequence step failed", "sequence_id", seq.ID.String(), "error", err.Error())
	}

	s.log.Info("sequence started",
		"sequence_id", seq.ID.String(),
		"lead_id", leadID.String(),
		"type", string(seqType),
		"total_steps", seq.TotalSteps,
	)
	return seq, nil
}

// Get fetches a sequence with its delivery log.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Sequence, []*domain.EmailLog, error) {
	seq, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	logs, err := s.repo.ListEmails(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return seq, logs, nil
}

// Cancel stops an active sequence.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.repo.Cancel(ctx, id)
}

func (s *Service) enqueueStep(ctx context.Context, sequenceID uuid.UUID, step int, at time.Time) error {
	_, err := s.enqueuer.Enqueue(ctx, taskrepo.EnqueueParams{
		Type:        tasks.TypeSendSequenceEmail,
		Priority:    tasks.PriorityMedium,
		Payload:     tasks.SendSequenceEmailPayload{SequenceID: sequenceID, StepNumber: step},
		ScheduledAt: at,
		DedupeKey:   fmt.Sprintf("send_sequence_email:%s:%d", sequenceID, step),
	})
	return err
}

// StepResult is stored on the task row after a delivery attempt.
type StepResult struct {
	SequenceID string `json:"sequence_id"`
	Step       int    `json:"step"`
	Delivered  bool   `json:"delivered"`
	Skipped    string `json:"skipped,omitempty"`
	Completed  bool   `json:"sequence_completed,omitempty"`
}

// HandleSendSequenceEmail is the queue handler that delivers one step
// and schedules the next. Redelivery of an already-sent step is a
// successful no-op.
func (s *Service) HandleSendSequenceEmail(ctx context.Context, task *tasks.Task) (interface{}, error) {
	var payload tasks.SendSequenceEmailPayload
	if err := tasks.DecodePayload(task, &payload); err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "malformed payload", err)
	}

	seq, err := s.repo.GetByID(ctx, payload.SequenceID)
	if err != nil {
		return nil, err
	}

	result := &StepResult{SequenceID: seq.ID.String(), Step: payload.StepNumber}

	if seq.Status != domain.StatusActive {
		result.Skipped = "sequence is " + string(seq.Status)
		return result, nil
	}
	if payload.StepNumber < 1 || payload.StepNumber > seq.TotalSteps {
		return nil, apperr.Validation(fmt.Sprintf("step %d out of range for %d-step sequence", payload.StepNumber, seq.TotalSteps))
	}

	sent, err := s.repo.StepAlreadySent(ctx, seq.ID, payload.StepNumber)
	if err != nil {
		return nil, err
	}
	if sent {
		result.Skipped = "step already delivered"
		return result, nil
	}

	lead, err := s.leadRepo.GetByID(ctx, seq.LeadID)
	if err != nil {
		return nil, err
	}

	content, err := renderStep(lead, seq.Type, payload.StepNumber, seq.TotalSteps)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "render sequence step", err)
	}

	if err := s.sender.Send(ctx, email.Message{
		To:       lead.Email,
		ToName:   firstNameOr(lead, ""),
		Subject:  content.Subject,
		TextBody: content.Body,
	}); err != nil {
		return nil, err
	}

	recorded, err := s.repo.RecordEmail(ctx, seq.ID, seq.LeadID, payload.StepNumber, content.Subject, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !recorded {
		// Lost a race with another delivery of the same step.
		result.Skipped = "step already delivered"
		return result, nil
	}
	result.Delivered = true

	if err := s.repo.AdvanceStep(ctx, seq.ID, payload.StepNumber); err != nil {
		return nil, err
	}

	if payload.StepNumber >= seq.TotalSteps {
		completed, err := s.repo.Complete(ctx, seq.ID)
		if err != nil {
			return nil, err
		}
		if completed {
			result.Completed = true
			s.bus.Publish(ctx, domainevents.NewSequenceCompleted(seq.ID, seq.LeadID, lead.Tier, seq.TotalSteps))
			s.log.Info("sequence completed", "sequence_id", seq.ID.String(), "lead_id", seq.LeadID.String())
		}
		return result, nil
	}

	nextStep := payload.StepNumber + 1
	delay := domain.DelayForStep(seq.Type, nextStep)
	if err := s.enqueueStep(ctx, seq.ID, nextStep, time.Now().UTC().Add(delay)); err != nil {
		return nil, err
	}

	return result, nil
}
