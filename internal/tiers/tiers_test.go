package tiers

import "testing"

func TestLoadDefaults(t *testing.T) {
	registry, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		tier         Tier
		monthlyCalls int
		durationMins int
		followUps    int
	}{
		{TierStarter, 10, 15, 2},
		{TierGrowth, 75, 30, 3},
		{TierScale, 175, 45, 3},
		{TierEnterprise, 1000, 60, 5},
	}

	for _, tt := range tests {
		limits := registry.Limits(tt.tier)
		if limits.MonthlyCalls != tt.monthlyCalls {
			t.Errorf("%s: MonthlyCalls = %d, want %d", tt.tier, limits.MonthlyCalls, tt.monthlyCalls)
		}
		if limits.CallDurationMins != tt.durationMins {
			t.Errorf("%s: CallDurationMins = %d, want %d", tt.tier, limits.CallDurationMins, tt.durationMins)
		}
		if limits.FollowUpAttempts != tt.followUps {
			t.Errorf("%s: FollowUpAttempts = %d, want %d", tt.tier, limits.FollowUpAttempts, tt.followUps)
		}
	}
}

func TestUnknownTierFallsBackToStarter(t *testing.T) {
	registry, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	limits := registry.Limits(Tier("platinum"))
	if limits.MonthlyCalls != 10 {
		t.Fatalf("unknown tier MonthlyCalls = %d, want starter's 10", limits.MonthlyCalls)
	}
	if registry.Valid(Tier("platinum")) {
		t.Fatal("Valid(platinum) = true, want false")
	}
	if !registry.Valid(TierGrowth) {
		t.Fatal("Valid(growth) = false, want true")
	}
}
