// Package events defines the domain events exchanged between feature
// modules over the in-process bus.
package events

import (
	"time"

	"leadflow_backend/platform/events"

	"github.com/google/uuid"
)

// Event names.
const (
	LeadPromotedName          = "lead.promoted"
	EngagementTrackedName     = "lead.engagement_tracked"
	SequenceCompletedName     = "sequence.completed"
	CallScheduledName         = "call.scheduled"
	TaskFailedPermanentlyName = "task.failed_permanently"
)

// LeadPromoted fires when a lead crosses the qualification threshold
// and becomes ready for a call.
type LeadPromoted struct {
	events.BaseEvent
	LeadID   uuid.UUID
	Score    int
	Category string
	Priority string
}

func (e LeadPromoted) EventName() string { return LeadPromotedName }

// NewLeadPromoted creates a LeadPromoted event.
func NewLeadPromoted(leadID uuid.UUID, score int, category, priority string) LeadPromoted {
	return LeadPromoted{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		Score:     score,
		Category:  category,
		Priority:  priority,
	}
}

// EngagementTracked fires after an engagement event is recorded and
// the lead's score updated.
type EngagementTracked struct {
	events.BaseEvent
	LeadID    uuid.UUID
	EventType string
	NewScore  int
}

func (e EngagementTracked) EventName() string { return EngagementTrackedName }

// NewEngagementTracked creates an EngagementTracked event.
func NewEngagementTracked(leadID uuid.UUID, eventType string, newScore int) EngagementTracked {
	return EngagementTracked{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		EventType: eventType,
		NewScore:  newScore,
	}
}

// SequenceCompleted fires when a nurture sequence delivers its final step.
type SequenceCompleted struct {
	events.BaseEvent
	SequenceID uuid.UUID
	LeadID     uuid.UUID
	Tier       string
	TotalSteps int
}

func (e SequenceCompleted) EventName() string { return SequenceCompletedName }

// NewSequenceCompleted creates a SequenceCompleted event.
func NewSequenceCompleted(sequenceID, leadID uuid.UUID, tier string, totalSteps int) SequenceCompleted {
	return SequenceCompleted{
		BaseEvent:  events.NewBaseEvent(),
		SequenceID: sequenceID,
		LeadID:     leadID,
		Tier:       tier,
		TotalSteps: totalSteps,
	}
}

// CallScheduled fires when a compliant call is booked.
type CallScheduled struct {
	events.BaseEvent
	CallID      uuid.UUID
	LeadID      uuid.UUID
	ScheduledAt time.Time
}

func (e CallScheduled) EventName() string { return CallScheduledName }

// NewCallScheduled creates a CallScheduled event.
func NewCallScheduled(callID, leadID uuid.UUID, scheduledAt time.Time) CallScheduled {
	return CallScheduled{
		BaseEvent:   events.NewBaseEvent(),
		CallID:      callID,
		LeadID:      leadID,
		ScheduledAt: scheduledAt,
	}
}

// TaskFailedPermanently fires when a queued task exhausts its retries.
type TaskFailedPermanently struct {
	events.BaseEvent
	TaskID     uuid.UUID
	TaskType   string
	RetryCount int
	LastError  string
}

func (e TaskFailedPermanently) EventName() string { return TaskFailedPermanentlyName }

// NewTaskFailedPermanently creates a TaskFailedPermanently event.
func NewTaskFailedPermanently(taskID uuid.UUID, taskType string, retryCount int, lastError string) TaskFailedPermanently {
	return TaskFailedPermanently{
		BaseEvent:  events.NewBaseEvent(),
		TaskID:     taskID,
		TaskType:   taskType,
		RetryCount: retryCount,
		LastError:  lastError,
	}
}
