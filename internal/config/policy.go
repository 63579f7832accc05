package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MatchPolicy holds the tunable matching thresholds. The numbers are
// operational policy, not contract: deployments tune them through the
// optional policy file.
type MatchPolicy struct {
	// Minimum top-suggestion score for an automatic match.
	ConfidenceThreshold int `yaml:"confidence_threshold"`
	// If the runner-up is closer than this many points, the auto-match is
	// considered ambiguous and skipped.
	AmbiguityMargin int `yaml:"ambiguity_margin"`
	// Suggestions scoring below the floor are not shown.
	DisplayFloor int `yaml:"display_floor"`
	// Maximum suggestions returned per transaction.
	TopN int `yaml:"top_n"`
	// Amount closeness decays to zero at this fraction of the candidate's
	// outstanding balance.
	AmountTolerancePct float64 `yaml:"amount_tolerance_pct"`
	// Date proximity decays to zero over this many days.
	DateWindowDays int `yaml:"date_window_days"`
}

// DefaultMatchPolicy returns the stock thresholds.
func DefaultMatchPolicy() MatchPolicy {
	return MatchPolicy{
		ConfidenceThreshold: 90,
		AmbiguityMargin:     5,
		DisplayFloor:        20,
		TopN:                10,
		AmountTolerancePct:  0.05,
		DateWindowDays:      30,
	}
}

// LoadMatchPolicy returns the defaults, overridden by the YAML file at path
// when one is configured.
func LoadMatchPolicy(path string) (MatchPolicy, error) {
	policy := DefaultMatchPolicy()
	if path == "" {
		return policy, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("read match policy: %w", err)
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return policy, fmt.Errorf("parse match policy: %w", err)
	}
	return policy, nil
}
