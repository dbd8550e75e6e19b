// Package match scores how likely a platform listing is the same property
// as a flyer entry.
package match

import (
	"errors"
	"fmt"
)

// Policy holds the tunable weights, gates and threshold of the scorer.
type Policy struct {
	AddressWeight float64 `yaml:"address_weight" json:"address_weight"`
	AddressGate   float64 `yaml:"address_gate" json:"address_gate"`

	RentWeight float64 `yaml:"rent_weight" json:"rent_weight"`
	RentGate   float64 `yaml:"rent_gate" json:"rent_gate"`
	// TieredRent replaces the rent gate with stepped credit by percentage
	// difference.
	TieredRent bool `yaml:"tiered_rent" json:"tiered_rent"`

	LayoutWeight float64 `yaml:"layout_weight" json:"layout_weight"`

	StatusWeight   float64  `yaml:"status_weight" json:"status_weight"`
	ActiveKeywords []string `yaml:"active_keywords" json:"active_keywords"`

	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// DefaultPolicy returns the stock scoring policy.
func DefaultPolicy() Policy {
	return Policy{
		AddressWeight:  0.4,
		AddressGate:    0.8,
		RentWeight:     0.3,
		RentGate:       0.9,
		LayoutWeight:   0.2,
		StatusWeight:   0.1,
		ActiveKeywords: []string{"募集中", "申込受付中", "空室", "入居可"},
		Threshold:      0.7,
	}
}

// Validate checks that every weight, gate and the threshold are in [0, 1].
func (p Policy) Validate() error {
	values := []struct {
		name string
		v    float64
	}{
		{"address_weight", p.AddressWeight},
		{"address_gate", p.AddressGate},
		{"rent_weight", p.RentWeight},
		{"rent_gate", p.RentGate},
		{"layout_weight", p.LayoutWeight},
		{"status_weight", p.StatusWeight},
		{"threshold", p.Threshold},
	}
	for _, val := range values {
		if val.v < 0 || val.v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %g", val.name, val.v)
		}
	}

	sum := p.AddressWeight + p.RentWeight + p.LayoutWeight + p.StatusWeight
	if sum == 0 {
		return errors.New("at least one weight must be positive")
	}
	if sum > 1.0001 {
		return fmt.Errorf("weights sum to %g, must not exceed 1", sum)
	}
	return nil
}
