package domain

import (
	"testing"
	"time"

	leaddomain "leadflow_backend/internal/leads/domain"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func compliantLead() *leaddomain.Lead {
	return &leaddomain.Lead{
		Email:    "jane@acme.io",
		Phone:    strPtr("+12125551234"),
		Timezone: "UTC",
	}
}

func TestCheckComplianceAllPass(t *testing.T) {
	result := CheckCompliance(ComplianceInputs{
		Lead:        compliantLead(),
		OptInSignal: true,
		ScheduledAt: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		Location:    time.UTC,
	})

	if !result.Compliant {
		t.Fatalf("expected compliant, failures: %+v", result.Failures())
	}
	if len(result.Requirements) != 4 {
		t.Fatalf("expected 4 requirements evaluated, got %d", len(result.Requirements))
	}
}

func TestCheckComplianceLateCallFailsOnlyWindow(t *testing.T) {
	result := CheckCompliance(ComplianceInputs{
		Lead:        compliantLead(),
		OptInSignal: true,
		ScheduledAt: time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC),
		Location:    time.UTC,
	})

	if result.Compliant {
		t.Fatal("expected non-compliant for a 22:30 call")
	}
	failures := result.Failures()
	if len(failures) != 1 {
		t.Fatalf("expected exactly 1 failure, got %d: %+v", len(failures), failures)
	}
	if failures[0].Name != RequirementCallWindow {
		t.Fatalf("failed requirement = %q, want %q", failures[0].Name, RequirementCallWindow)
	}
}

func TestCheckComplianceReportsEveryFailure(t *testing.T) {
	lead := &leaddomain.Lead{Email: "jane@acme.io", Timezone: "UTC"}

	result := CheckCompliance(ComplianceInputs{
		Lead:         lead,
		OptInSignal:  false,
		Unsubscribed: true,
		ScheduledAt:  time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC),
		Location:     time.UTC,
	})

	// No signal, an unsubscribe, no phone, and a 06:00 slot: all four
	// fail and all four are reported.
	if got := len(result.Failures()); got != 4 {
		t.Fatalf("expected 4 failures, got %d: %+v", got, result.Failures())
	}
}

func TestCheckComplianceUnsubscribedLeadFailsDespiteEarlierSignals(t *testing.T) {
	// A lead who clicked months ago and then unsubscribed still shows an
	// opt-in signal; the unsubscribe alone must block the call.
	result := CheckCompliance(ComplianceInputs{
		Lead:         compliantLead(),
		OptInSignal:  true,
		Unsubscribed: true,
		ScheduledAt:  time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		Location:     time.UTC,
	})

	if result.Compliant {
		t.Fatal("expected non-compliant for an unsubscribed lead")
	}
	failures := result.Failures()
	if len(failures) != 1 {
		t.Fatalf("expected exactly 1 failure, got %d: %+v", len(failures), failures)
	}
	if failures[0].Name != RequirementNoUnsubscribe {
		t.Fatalf("failed requirement = %q, want %q", failures[0].Name, RequirementNoUnsubscribe)
	}
}

func TestCheckComplianceWindowBoundaries(t *testing.T) {
	tests := []struct {
		hour int
		want bool
	}{
		{7, false},
		{8, true},
		{21, true},
		{22, false},
	}

	for _, tt := range tests {
		result := CheckCompliance(ComplianceInputs{
			Lead:        compliantLead(),
			OptInSignal: true,
			ScheduledAt: time.Date(2026, 3, 10, tt.hour, 0, 0, 0, time.UTC),
			Location:    time.UTC,
		})
		if result.Compliant != tt.want {
			t.Errorf("hour %d: compliant = %v, want %v", tt.hour, result.Compliant, tt.want)
		}
	}
}

func TestCheckComplianceUsesLeadLocalTime(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatal(err)
	}

	// 03:00 UTC is 19:00 or 20:00 in Los Angeles, inside the window.
	result := CheckCompliance(ComplianceInputs{
		Lead:        compliantLead(),
		OptInSignal: true,
		ScheduledAt: time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC),
		Location:    loc,
	})
	if !result.Compliant {
		t.Fatalf("expected compliant in lead-local evening, failures: %+v", result.Failures())
	}
}

func TestOptimalCallTime(t *testing.T) {
	// A Tuesday at noon.
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		preferred *int
		hours     []int
		want      time.Time
	}{
		{
			name:      "preferred hour on the next day",
			preferred: intPtr(14),
			want:      time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC),
		},
		{
			name:      "early preference clamps to window start",
			preferred: intPtr(6),
			want:      time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC),
		},
		{
			name:      "late preference rolls to the following morning",
			preferred: intPtr(23),
			want:      time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC),
		},
		{
			name:  "most frequent engagement hour wins",
			hours: []int{14, 9, 14},
			want:  time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC),
		},
		{
			name: "default mid-morning slot",
			want: time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OptimalCallTime(tt.preferred, tt.hours, now, time.UTC)
			if !got.Equal(tt.want) {
				t.Fatalf("OptimalCallTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOptimalCallTimeSkipsWeekends(t *testing.T) {
	// Friday: the next day is Saturday, so the slot moves to Monday.
	friday := time.Date(2026, 3, 13, 12, 0, 0, 0, time.UTC)
	got := OptimalCallTime(intPtr(10), nil, friday, time.UTC)
	want := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("from Friday: got %v, want Monday %v", got, want)
	}

	// Saturday: the next day is Sunday, pushed one day to Monday.
	saturday := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	got = OptimalCallTime(intPtr(10), nil, saturday, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("from Saturday: got %v, want Monday %v", got, want)
	}
}
