// Package domain holds the lead model shared by the feature's
// repository, scoring, and service layers.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the lead lifecycle state.
type Status string

const (
	StatusCold      Status = "cold"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusWarm      Status = "warm"
	StatusConverted Status = "converted"
)

// Valid reports whether s is a known lead status.
func (s Status) Valid() bool {
	switch s {
	case StatusCold, StatusContacted, StatusQualified, StatusWarm, StatusConverted:
		return true
	}
	return false
}

// Category buckets a lead by score.
type Category string

const (
	CategoryCold     Category = "cold"
	CategoryCool     Category = "cool"
	CategoryLukewarm Category = "lukewarm"
	CategoryWarm     Category = "warm"
)

// Lead is one prospect in the pipeline. OwnerID is the account the
// lead belongs to; call quotas are counted per owner.
type Lead struct {
	ID                  uuid.UUID       `json:"id"`
	OwnerID             uuid.UUID       `json:"owner_id"`
	Email               string          `json:"email"`
	Phone               *string         `json:"phone,omitempty"`
	FirstName           *string         `json:"first_name,omitempty"`
	LastName            *string         `json:"last_name,omitempty"`
	Company             *string         `json:"company,omitempty"`
	Title               *string         `json:"title,omitempty"`
	LinkedInURL         *string         `json:"linkedin_url,omitempty"`
	Industry            *string         `json:"industry,omitempty"`
	CompanySize         *string         `json:"company_size,omitempty"`
	Source              *string         `json:"source,omitempty"`
	Tier                string          `json:"tier"`
	Status              Status          `json:"status"`
	Score               int             `json:"score"`
	ScoreBreakdown      json.RawMessage `json:"score_breakdown,omitempty"`
	Category            Category        `json:"category"`
	ReadyForCall        bool            `json:"ready_for_call"`
	ConsentRecorded     bool            `json:"consent_recorded"`
	PreferredCallHour   *int            `json:"preferred_call_hour,omitempty"`
	Timezone            string          `json:"timezone"`
	LastEngagementAt    *time.Time      `json:"last_engagement_at,omitempty"`
	EngagementSummary   json.RawMessage `json:"engagement_summary,omitempty"`
	EngagementCheckedAt *time.Time      `json:"engagement_checked_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// EngagementType classifies a tracked interaction.
type EngagementType string

const (
	EngagementOpened     EngagementType = "opened"
	EngagementClicked    EngagementType = "clicked"
	EngagementReplied    EngagementType = "replied"
	EngagementForwarded  EngagementType = "forwarded"
	EngagementPageView   EngagementType = "page_view"
	EngagementFormSubmit EngagementType = "form_submit"
	EngagementDownload   EngagementType = "download"
	EngagementVideoWatch EngagementType = "video_watch"
	EngagementUnsub      EngagementType = "unsubscribed"
)

// Valid reports whether t is a known engagement type.
func (t EngagementType) Valid() bool {
	switch t {
	case EngagementOpened, EngagementClicked, EngagementReplied, EngagementForwarded,
		EngagementPageView, EngagementFormSubmit, EngagementDownload,
		EngagementVideoWatch, EngagementUnsub:
		return true
	}
	return false
}

// EngagementEvent is one tracked interaction with a lead.
type EngagementEvent struct {
	ID         uuid.UUID       `json:"id"`
	LeadID     uuid.UUID       `json:"lead_id"`
	Type       EngagementType  `json:"event_type"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// EngagementStats aggregates a lead's interaction history for scoring.
type EngagementStats struct {
	Opens           int
	Clicks          int
	Replies         int
	Forwards        int
	PageViews       int
	Conversions     int
	FastResponses   int // replies within an hour of the preceding send
	TotalEvents     int
	LongDwellPages  int // landing page visits over two minutes
	EngagementHours []int
}

// SequenceProgress is how far a lead is through its active sequence.
type SequenceProgress struct {
	Active      bool
	CurrentStep int
	TotalSteps  int
}
