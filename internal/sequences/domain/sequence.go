// Package domain holds the nurture sequence model.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Type is the sequence track a lead runs through, derived from its
// subscription tier.
type Type string

const (
	TypeBasic    Type = "basic"
	TypeAdvanced Type = "advanced"
	TypePremium  Type = "premium"
	TypeCustom   Type = "custom"
)

// Status is the sequence lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Sequence is one nurture run for one lead.
type Sequence struct {
	ID          uuid.UUID  `json:"id"`
	LeadID      uuid.UUID  `json:"lead_id"`
	Type        Type       `json:"sequence_type"`
	Status      Status     `json:"status"`
	CurrentStep int        `json:"current_step"`
	TotalSteps  int        `json:"total_steps"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// EmailLog records one delivered sequence step. The unique pair
// (sequence_id, step_number) is what makes step delivery idempotent.
type EmailLog struct {
	ID         uuid.UUID `json:"id"`
	SequenceID uuid.UUID `json:"sequence_id"`
	LeadID     uuid.UUID `json:"lead_id"`
	StepNumber int       `json:"step_number"`
	Subject    string    `json:"subject"`
	SentAt     time.Time `json:"sent_at"`
}

// StepsFor returns how many steps each sequence type runs.
func StepsFor(t Type) int {
	switch t {
	case TypeBasic:
		return 3
	case TypeAdvanced:
		return 5
	case TypePremium:
		return 7
	case TypeCustom:
		return 10
	default:
		return 3
	}
}

// TypeForTier maps a subscription tier to its sequence track.
func TypeForTier(tier string) Type {
	switch tier {
	case "growth":
		return TypeAdvanced
	case "scale":
		return TypePremium
	case "enterprise":
		return TypeCustom
	default:
		return TypeBasic
	}
}

// DefaultStepDelay applies when a step has no entry in its delay table.
const DefaultStepDelay = 72 * time.Hour

var stepDelays = map[Type]map[int]time.Duration{
	TypeBasic: {
		2: 72 * time.Hour,
		3: 120 * time.Hour,
	},
	TypeAdvanced: {
		2: 48 * time.Hour,
		3: 96 * time.Hour,
		4: 168 * time.Hour,
		5: 240 * time.Hour,
	},
	TypePremium: {
		2: 24 * time.Hour,
		3: 48 * time.Hour,
		4: 96 * time.Hour,
		5: 168 * time.Hour,
		6: 240 * time.Hour,
		7: 336 * time.Hour,
	},
	TypeCustom: {
		2:  24 * time.Hour,
		3:  48 * time.Hour,
		4:  72 * time.Hour,
		5:  120 * time.Hour,
		6:  168 * time.Hour,
		7:  240 * time.Hour,
		8:  336 * time.Hour,
		9:  504 * time.Hour,
		10: 672 * time.Hour,
	},
}

// DelayForStep returns how long after the previous step the given step
// should go out.
func DelayForStep(t Type, step int) time.Duration {
	if delays, ok := stepDelays[t]; ok {
		if d, ok := delays[step]; ok {
			return d
		}
	}
	return DefaultStepDelay
}
