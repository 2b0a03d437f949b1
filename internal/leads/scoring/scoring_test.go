package scoring

import (
	"testing"
	"time"

	"leadflow_backend/internal/leads/domain"
)

func strPtr(s string) *string { return &s }

func fullProfileLead() *domain.Lead {
	return &domain.Lead{
		Email:       "jane@acme.io",
		Phone:       strPtr("+12125551234"),
		FirstName:   strPtr("Jane"),
		LastName:    strPtr("Doe"),
		Company:     strPtr("Acme"),
		Title:       strPtr("VP Engineering"),
		LinkedInURL: strPtr("https://linkedin.com/in/janedoe"),
		Industry:    strPtr("Technology"),
		CompanySize: strPtr("1000+"),
	}
}

func TestProfileQuality(t *testing.T) {
	tests := []struct {
		name string
		lead *domain.Lead
		want int
	}{
		{name: "full business profile hits the cap", lead: fullProfileLead(), want: 25},
		{name: "bare personal email", lead: &domain.Lead{Email: "someone@gmail.com"}, want: 3},
		{name: "bare business email", lead: &domain.Lead{Email: "someone@acme.io"}, want: 8},
		{
			name: "low value industry",
			lead: &domain.Lead{Email: "a@gmail.com", Industry: strPtr("retail")},
			want: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProfileQuality(tt.lead); got != tt.want {
				t.Fatalf("ProfileQuality() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEngagement(t *testing.T) {
	stats := &domain.EngagementStats{
		Opens:       2,
		Clicks:      1,
		Replies:     1,
		PageViews:   3,
		Conversions: 1,
	}
	seq := domain.SequenceProgress{Active: true, CurrentStep: 3, TotalSteps: 5}

	// opens 4 + clicks 4 + replies 10 + views 5 + conversions 3 + progression 3
	if got := Engagement(stats, seq); got != 29 {
		t.Fatalf("Engagement() = %d, want 29", got)
	}

	heavy := &domain.EngagementStats{Opens: 50, Clicks: 50, Replies: 50, PageViews: 50, Conversions: 50}
	if got := Engagement(heavy, seq); got != MaxEngagement {
		t.Fatalf("Engagement() = %d, want cap %d", got, MaxEngagement)
	}

	if got := Engagement(&domain.EngagementStats{}, domain.SequenceProgress{}); got != 0 {
		t.Fatalf("Engagement() with no activity = %d, want 0", got)
	}
}

func TestBehavioral(t *testing.T) {
	stats := &domain.EngagementStats{
		FastResponses:  2,
		TotalEvents:    6,
		Forwards:       1,
		LongDwellPages: 1,
	}
	// fast 4 + volume 7 + forwards 5 + dwell 3
	if got := Behavioral(stats); got != 19 {
		t.Fatalf("Behavioral() = %d, want 19", got)
	}

	heavy := &domain.EngagementStats{FastResponses: 20, TotalEvents: 20, Forwards: 20, LongDwellPages: 5}
	if got := Behavioral(heavy); got != MaxBehavioral {
		t.Fatalf("Behavioral() = %d, want cap %d", got, MaxBehavioral)
	}
}

func TestCompanyFit(t *testing.T) {
	tests := []struct {
		name string
		lead *domain.Lead
		want int
	}{
		{name: "enterprise decision maker in tech", lead: fullProfileLead(), want: 15},
		{
			name: "small company individual contributor",
			lead: &domain.Lead{Email: "a@b.co", CompanySize: strPtr("10-100"), Title: strPtr("Analyst")},
			want: 5,
		},
		{name: "no company data", lead: &domain.Lead{Email: "a@b.co"}, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompanyFit(tt.lead); got != tt.want {
				t.Fatalf("CompanyFit() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTiming(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		lastSeen time.Duration
		active   bool
		want     int
	}{
		{name: "engaged this morning with active sequence", lastSeen: 10 * time.Hour, active: true, want: 5},
		{name: "engaged two days ago", lastSeen: 48 * time.Hour, active: false, want: 2},
		{name: "engaged five days ago", lastSeen: 120 * time.Hour, active: false, want: 1},
		{name: "stale for two weeks", lastSeen: 14 * 24 * time.Hour, active: false, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := now.Add(-tt.lastSeen)
			lead := &domain.Lead{LastEngagementAt: &last}
			seq := domain.SequenceProgress{Active: tt.active}
			if got := Timing(lead, seq, now); got != tt.want {
				t.Fatalf("Timing() = %d, want %d", got, tt.want)
			}
		})
	}

	if got := Timing(&domain.Lead{}, domain.SequenceProgress{}, now); got != 0 {
		t.Fatalf("Timing() with no history = %d, want 0", got)
	}
}

func TestComputeTotalAndPromotion(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	last := now.Add(-10 * time.Hour)
	lead := fullProfileLead()
	lead.LastEngagementAt = &last

	breakdown := Compute(Inputs{
		Lead: lead,
		Stats: &domain.EngagementStats{
			Opens: 2, Clicks: 1, Replies: 1, PageViews: 3, Conversions: 1,
			FastResponses: 2, TotalEvents: 6, Forwards: 1, LongDwellPages: 1,
		},
		Sequence: domain.SequenceProgress{Active: true, CurrentStep: 3, TotalSteps: 5},
		Now:      now,
	})

	// 25 + 29 + 19 + 15 + 5
	if got := breakdown.Total(); got != 93 {
		t.Fatalf("Total() = %d, want 93 (breakdown %+v)", got, breakdown)
	}
	if !ShouldPromote(breakdown.Total()) {
		t.Fatal("expected promotion at score 93")
	}
	if got := CallPriority(breakdown.Total()); got != "high" {
		t.Fatalf("CallPriority(93) = %q, want high", got)
	}
	if got := CallPriority(80); got != "medium" {
		t.Fatalf("CallPriority(80) = %q, want medium", got)
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		score int
		want  domain.Category
	}{
		{0, domain.CategoryCold},
		{24, domain.CategoryCold},
		{25, domain.CategoryCool},
		{49, domain.CategoryCool},
		{50, domain.CategoryLukewarm},
		{74, domain.CategoryLukewarm},
		{75, domain.CategoryWarm},
		{100, domain.CategoryWarm},
	}

	for _, tt := range tests {
		if got := Categorize(tt.score); got != tt.want {
			t.Errorf("Categorize(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestDelta(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	halfHourAgo := now.Add(-30 * time.Minute)
	nineDaysAgo := now.Add(-9 * 24 * time.Hour)

	tests := []struct {
		name      string
		eventType domain.EngagementType
		last      *time.Time
		want      int
	}{
		{name: "open with no history", eventType: domain.EngagementOpened, last: nil, want: 2},
		{name: "click in a hot thread", eventType: domain.EngagementClicked, last: &halfHourAgo, want: 12},
		{name: "reply after going stale", eventType: domain.EngagementReplied, last: &nineDaysAgo, want: 8},
		{name: "form submit", eventType: domain.EngagementFormSubmit, last: nil, want: 20},
		{name: "unsubscribe in a hot thread", eventType: domain.EngagementUnsub, last: &halfHourAgo, want: -38},
		{name: "unknown type", eventType: domain.EngagementType("bogus"), last: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Delta(tt.eventType, tt.last, now); got != tt.want {
				t.Fatalf("Delta() = %d, want %d", got, tt.want)
			}
		})
	}
}
