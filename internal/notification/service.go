package notification

import (
	"context"
	"fmt"

	domainevents "leadflow_backend/internal/events"
	"leadflow_backend/internal/tasks"
	"leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"
)

// Service turns domain events into stored notifications.
type Service struct {
	repo *Repository
	log  *logger.Logger
}

// NewService creates the notification service.
func NewService(repo *Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// SubscribeAll registers the service on the event bus.
func (s *Service) SubscribeAll(bus events.Bus) {
	bus.Subscribe(domainevents.LeadPromotedName, s.onLeadPromoted)
	bus.Subscribe(domainevents.SequenceCompletedName, s.onSequenceCompleted)
	bus.Subscribe(domainevents.TaskFailedPermanentlyName, s.onTaskFailed)
}

func (s *Service) onLeadPromoted(ctx context.Context, event events.Event) error {
	e, ok := event.(domainevents.LeadPromoted)
	if !ok {
		return nil
	}
	message := fmt.Sprintf("lead %s promoted with score %d (%s priority)", e.LeadID, e.Score, e.Priority)
	return s.repo.Create(ctx, KindLeadPromoted, message, e)
}

func (s *Service) onSequenceCompleted(ctx context.Context, event events.Event) error {
	e, ok := event.(domainevents.SequenceCompleted)
	if !ok {
		return nil
	}
	message := fmt.Sprintf("sequence %s completed all %d steps for lead %s", e.SequenceID, e.TotalSteps, e.LeadID)
	return s.repo.Create(ctx, KindSequenceCompleted, message, e)
}

func (s *Service) onTaskFailed(ctx context.Context, event events.Event) error {
	e, ok := event.(domainevents.TaskFailedPermanently)
	if !ok {
		return nil
	}
	message := fmt.Sprintf("task %s (%s) failed permanently after %d retries: %s", e.TaskID, e.TaskType, e.RetryCount, e.LastError)
	return s.repo.Create(ctx, KindTaskFailed, message, e)
}

// FailureNotifier adapts the event bus to the task processor's
// permanent-failure callback.
type FailureNotifier struct {
	bus events.Bus
}

// NewFailureNotifier creates the adapter.
func NewFailureNotifier(bus events.Bus) *FailureNotifier {
	return &FailureNotifier{bus: bus}
}

// TaskFailedPermanently publishes the failure onto the bus.
func (n *FailureNotifier) TaskFailedPermanently(ctx context.Context, task *tasks.Task, lastError string) {
	n.bus.Publish(ctx, domainevents.NewTaskFailedPermanently(task.ID, string(task.Type), task.RetryCount+1, lastError))
}
