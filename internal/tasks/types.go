// Package tasks implements the Postgres-backed task queue: typed task
// definitions, the repository that claims and settles rows, and the
// processor that dispatches claimed tasks to registered handlers.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type identifies what a queued task does. Every value must have a
// registered handler; Valid rejects anything else at enqueue time.
type Type string

const (
	TypeUpdateLeadScore   Type = "update_lead_score"
	TypeSendSequenceEmail Type = "send_sequence_email"
	TypeScheduleCall      Type = "schedule_call"
	TypeSendReminder      Type = "send_reminder"
	TypeQualifyWarmLeads  Type = "qualify_warm_leads"
	TypeCheckEngagement   Type = "check_engagement"
	TypePageAnalytics     Type = "page_analytics"
)

// Valid reports whether t is a known task type.
func (t Type) Valid() bool {
	switch t {
	case TypeUpdateLeadScore, TypeSendSequenceEmail, TypeScheduleCall, TypeSendReminder,
		TypeQualifyWarmLeads, TypeCheckEngagement, TypePageAnalytics:
		return true
	}
	return false
}

// Priority orders ready tasks within a batch claim.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Status is the lifecycle state of a queued task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// MaxRetries is how many re-attempts a task gets after its first failure.
const MaxRetries = 3

// Task is one row of the queue.
type Task struct {
	ID          uuid.UUID       `json:"id"`
	Type        Type            `json:"task_type"`
	Status      Status          `json:"status"`
	Priority    Priority        `json:"priority"`
	Payload     json.RawMessage `json:"payload"`
	DedupeKey   *string         `json:"dedupe_key,omitempty"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	RetryCount  int             `json:"retry_count"`
	MaxRetries  int             `json:"max_retries"`
	LastError   *string         `json:"last_error,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RetryBackoff returns the delay before the next attempt after the
// given number of retries has already been spent, doubling from one
// minute: 1, 2, 4 minutes for retries 0, 1, 2.
func RetryBackoff(retriesSpent int) time.Duration {
	return time.Duration(1<<retriesSpent) * time.Minute
}

// =============================================================================
// Payloads
// =============================================================================

// UpdateLeadScorePayload recomputes one lead's score.
type UpdateLeadScorePayload struct {
	LeadID uuid.UUID `json:"lead_id"`
}

// SendSequenceEmailPayload delivers one step of a nurture sequence.
type SendSequenceEmailPayload struct {
	SequenceID uuid.UUID `json:"sequence_id"`
	StepNumber int       `json:"step_number"`
}

// ScheduleCallPayload books a qualification call for a promoted lead.
type ScheduleCallPayload struct {
	LeadID   uuid.UUID `json:"lead_id"`
	Priority string    `json:"priority"`
}

// SendReminderPayload sends one reminder for an upcoming call.
type SendReminderPayload struct {
	CallID uuid.UUID `json:"call_id"`
	Label  string    `json:"label"`
}

// QualifyWarmLeadsPayload promotes cold leads whose scores already
// warrant it. It carries no parameters.
type QualifyWarmLeadsPayload struct{}

// CheckEngagementPayload refreshes one lead's engagement summary.
type CheckEngagementPayload struct {
	LeadID uuid.UUID `json:"lead_id"`
}

// PageAnalyticsPayload aggregates the last day of traffic for one
// landing page.
type PageAnalyticsPayload struct {
	PageID string `json:"page_id"`
}

// DecodePayload unmarshals a task payload into dst with strict field
// checking, so a malformed payload fails fast instead of half-parsing.
func DecodePayload(task *Task, dst interface{}) error {
	if err := json.Unmarshal(task.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", task.Type, err)
	}
	return nil
}

// EncodePayload marshals a payload for enqueueing.
func EncodePayload(payload interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode task payload: %w", err)
	}
	return raw, nil
}
