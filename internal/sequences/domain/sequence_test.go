package domain

import (
	"testing"
	"time"
)

func TestTypeForTier(t *testing.T) {
	tests := []struct {
		tier string
		want Type
	}{
		{"starter", TypeBasic},
		{"growth", TypeAdvanced},
		{"scale", TypePremium},
		{"enterprise", TypeCustom},
		{"unknown", TypeBasic},
	}

	for _, tt := range tests {
		if got := TypeForTier(tt.tier); got != tt.want {
			t.Errorf("TypeForTier(%q) = %q, want %q", tt.tier, got, tt.want)
		}
	}
}

func TestStepsFor(t *testing.T) {
	tests := []struct {
		seqType Type
		want    int
	}{
		{TypeBasic, 3},
		{TypeAdvanced, 5},
		{TypePremium, 7},
		{TypeCustom, 10},
	}

	for _, tt := range tests {
		if got := StepsFor(tt.seqType); got != tt.want {
			t.Errorf("StepsFor(%q) = %d, want %d", tt.seqType, got, tt.want)
		}
	}
}

func TestDelayForStep(t *testing.T) {
	tests := []struct {
		seqType Type
		step    int
		want    time.Duration
	}{
		{TypeBasic, 2, 72 * time.Hour},
		{TypeBasic, 3, 120 * time.Hour},
		{TypeAdvanced, 5, 240 * time.Hour},
		{TypePremium, 2, 24 * time.Hour},
		{TypePremium, 7, 336 * time.Hour},
		{TypeCustom, 10, 672 * time.Hour},
		// steps without an entry fall back to the default spacing
		{TypeBasic, 4, DefaultStepDelay},
		{Type("bogus"), 2, DefaultStepDelay},
	}

	for _, tt := range tests {
		if got := DelayForStep(tt.seqType, tt.step); got != tt.want {
			t.Errorf("DelayForStep(%q, %d) = %v, want %v", tt.seqType, tt.step, got, tt.want)
		}
	}
}
