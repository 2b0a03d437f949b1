// Package domain holds the call model and TCPA compliance rules.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the call lifecycle state.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// Call is one scheduled qualification call. Compliance is the verdict
// the call was created under; a call only ever exists with a compliant
// snapshot.
type Call struct {
	ID           uuid.UUID       `json:"id"`
	LeadID       uuid.UUID       `json:"lead_id"`
	Status       Status          `json:"status"`
	Priority     string          `json:"priority"`
	ScheduledAt  time.Time       `json:"scheduled_at"`
	Timezone     string          `json:"timezone"`
	DurationMins int             `json:"duration_mins"`
	Compliance   json.RawMessage `json:"compliance,omitempty"`
	Attempts     int             `json:"attempts"`
	MaxAttempts  int             `json:"max_attempts"`
	Outcome      *string         `json:"outcome,omitempty"`
	Notes        *string         `json:"notes,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	CancelledAt  *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Reminder offsets before the scheduled call.
var ReminderOffsets = []struct {
	Label  string
	Before time.Duration
}{
	{Label: "24h", Before: 24 * time.Hour},
	{Label: "2h", Before: 2 * time.Hour},
	{Label: "15m", Before: 15 * time.Minute},
}
