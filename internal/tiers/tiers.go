// Package tiers defines the subscription tiers and their call quotas.
// The defaults ship embedded; deployments can override them with a
// YAML file pointed at by TIERS_FILE.
package tiers

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tiers.yaml
var defaultTiersYAML []byte

// Tier identifies a subscription level.
type Tier string

const (
	TierStarter    Tier = "starter"
	TierGrowth     Tier = "growth"
	TierScale      Tier = "scale"
	TierEnterprise Tier = "enterprise"
)

// Limits holds the call quotas for one tier.
type Limits struct {
	MonthlyCalls     int `yaml:"monthly_calls"`
	CallDurationMins int `yaml:"call_duration_mins"`
	FollowUpAttempts int `yaml:"follow_up_attempts"`
}

// Registry resolves tiers to their limits.
type Registry struct {
	limits map[Tier]Limits
}

type tiersFile struct {
	Tiers map[string]Limits `yaml:"tiers"`
}

// Load builds the registry from the embedded defaults, optionally
// overridden by the file at path (empty path keeps the defaults).
func Load(path string) (*Registry, error) {
	raw := defaultTiersYAML
	if path != "" {
		override, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read tiers file: %w", err)
		}
		raw = override
	}

	var parsed tiersFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse tiers config: %w", err)
	}
	if len(parsed.Tiers) == 0 {
		return nil, fmt.Errorf("tiers config defines no tiers")
	}

	limits := make(map[Tier]Limits, len(parsed.Tiers))
	for name, l := range parsed.Tiers {
		if l.MonthlyCalls <= 0 {
			return nil, fmt.Errorf("tier %q: monthly_calls must be positive", name)
		}
		limits[Tier(strings.ToLower(name))] = l
	}

	for _, required := range []Tier{TierStarter, TierGrowth, TierScale, TierEnterprise} {
		if _, ok := limits[required]; !ok {
			return nil, fmt.Errorf("tiers config is missing tier %q", required)
		}
	}

	return &Registry{limits: limits}, nil
}

// Limits returns the quotas for the given tier. Unknown tiers fall back
// to starter, the most restrictive.
func (r *Registry) Limits(t Tier) Limits {
	if l, ok := r.limits[Tier(strings.ToLower(string(t)))]; ok {
		return l
	}
	return r.limits[TierStarter]
}

// Valid reports whether t names a configured tier.
func (r *Registry) Valid(t Tier) bool {
	_, ok := r.limits[Tier(strings.ToLower(string(t)))]
	return ok
}
