// Package transport defines the HTTP request and response shapes for
// the leads feature.
package transport

import (
	"encoding/json"
	"time"
)

// CreateLeadRequest is the payload for POST /leads.
type CreateLeadRequest struct {
	OwnerID           string  `json:"owner_id" validate:"required,uuid"`
	Email             string  `json:"email" validate:"required,email"`
	Phone             *string `json:"phone,omitempty"`
	FirstName         *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName          *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Company           *string `json:"company,omitempty" validate:"omitempty,max=200"`
	Title             *string `json:"title,omitempty" validate:"omitempty,max=200"`
	LinkedInURL       *string `json:"linkedin_url,omitempty" validate:"omitempty,url"`
	Industry          *string `json:"industry,omitempty" validate:"omitempty,max=100"`
	CompanySize       *string `json:"company_size,omitempty" validate:"omitempty,max=50"`
	Source            *string `json:"source,omitempty" validate:"omitempty,max=100"`
	Tier              string  `json:"tier" validate:"required,oneof=starter growth scale enterprise"`
	ConsentRecorded   bool    `json:"consent_recorded"`
	PreferredCallHour *int    `json:"preferred_call_hour,omitempty" validate:"omitempty,gte=0,lte=23"`
	Timezone          string  `json:"timezone,omitempty"`
}

// TrackEngagementRequest is the payload for POST /leads/:id/engagement.
type TrackEngagementRequest struct {
	EventType  string          `json:"event_type" validate:"required"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	OccurredAt *time.Time      `json:"occurred_at,omitempty"`
}

// TrackEngagementResponse reports the recorded event and new score.
type TrackEngagementResponse struct {
	EventID  string `json:"event_id"`
	NewScore int    `json:"new_score"`
}
