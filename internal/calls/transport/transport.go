// Package transport defines the HTTP request shapes for the calls
// feature.
package transport

import "time"

// ScheduleCallRequest is the payload for POST /calls.
type ScheduleCallRequest struct {
	LeadID      string     `json:"lead_id" validate:"required,uuid"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Priority    string     `json:"priority,omitempty" validate:"omitempty,oneof=high medium low"`
}

// CompleteCallRequest is the payload for POST /calls/:id/complete.
type CompleteCallRequest struct {
	Outcome string  `json:"outcome" validate:"required,oneof=qualified unqualified follow_up no_show"`
	Notes   *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}
