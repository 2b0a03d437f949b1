package service

import (
	"testing"
	"time"

	"leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
)

func TestBuildEngagementSummary(t *testing.T) {
	now := time.Date(2026, time.March, 29, 12, 0, 0, 0, time.UTC)
	last := now.Add(-2 * time.Hour)
	lead := &domain.Lead{
		CreatedAt:        now.AddDate(0, 0, -28),
		LastEngagementAt: &last,
	}
	stats := &domain.EngagementStats{
		Opens:       10,
		Clicks:      5,
		Replies:     2,
		Forwards:    1,
		PageViews:   3,
		Conversions: 1,
		TotalEvents: 22,
	}

	summary := buildEngagementSummary(lead, stats, now)

	if summary.TotalEvents != 22 {
		t.Errorf("TotalEvents = %d, want 22", summary.TotalEvents)
	}
	if summary.Opens != 10 || summary.Clicks != 5 || summary.Replies != 2 {
		t.Errorf("per-type counts = %d/%d/%d, want 10/5/2", summary.Opens, summary.Clicks, summary.Replies)
	}
	if summary.LastEngagementAt == nil || !summary.LastEngagementAt.Equal(last) {
		t.Errorf("LastEngagementAt = %v, want %v", summary.LastEngagementAt, last)
	}
	// 22 events over exactly 4 weeks.
	if summary.EventsPerWeek != 5.5 {
		t.Errorf("EventsPerWeek = %v, want 5.5", summary.EventsPerWeek)
	}
}

func TestBuildEngagementSummaryYoungLeadVelocityFloor(t *testing.T) {
	now := time.Date(2026, time.March, 29, 12, 0, 0, 0, time.UTC)
	lead := &domain.Lead{CreatedAt: now.Add(-24 * time.Hour)}
	stats := &domain.EngagementStats{TotalEvents: 7}

	summary := buildEngagementSummary(lead, stats, now)

	// A day-old lead is measured against a full week, not a day.
	if summary.EventsPerWeek != 7 {
		t.Errorf("EventsPerWeek = %v, want 7", summary.EventsPerWeek)
	}
}

func TestPageMetricsConversionRate(t *testing.T) {
	metrics := pageMetricsFrom("pricing-2026", &leadrepo.PageTraffic{
		Views:       40,
		Submissions: 10,
		UniqueLeads: 25,
	})

	if metrics.PageID != "pricing-2026" {
		t.Errorf("PageID = %q, want %q", metrics.PageID, "pricing-2026")
	}
	if metrics.ConversionRate != 0.25 {
		t.Errorf("ConversionRate = %v, want 0.25", metrics.ConversionRate)
	}
}

func TestPageMetricsNoViews(t *testing.T) {
	metrics := pageMetricsFrom("empty-page", &leadrepo.PageTraffic{})
	if metrics.ConversionRate != 0 {
		t.Errorf("ConversionRate = %v, want 0", metrics.ConversionRate)
	}
}
