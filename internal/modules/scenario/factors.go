// Package scenario defines the macroeconomic scenario vocabulary shared by the
// generator, the transfer functions and the capital aggregator.
package scenario

import (
	"fmt"
	"strings"

	"github.com/aristath/stresscore/internal/domain"
	"github.com/aristath/stresscore/pkg/formulas"
)

// Dimensions is the number of macro factors in a scenario vector.
const Dimensions = 4

// Factor order inside a vector.
const (
	GDP = iota
	Unemployment
	HousePrice
	InterestRate
)

// FactorNames labels vector positions for API output.
var FactorNames = [Dimensions]string{"gdp_change", "unemployment_change", "house_price_change", "interest_rate_change"}

// MacroFactors is one scenario realization. Values are signed percentage
// changes, so -2.5 means a 2.5% decline.
type MacroFactors struct {
	GDPChange          float64 `json:"gdp_change" yaml:"gdp_change" msgpack:"gdp"`
	UnemploymentChange float64 `json:"unemployment_change" yaml:"unemployment_change" msgpack:"unemployment"`
	HousePriceChange   float64 `json:"house_price_change" yaml:"house_price_change" msgpack:"hpi"`
	InterestRateChange float64 `json:"interest_rate_change" yaml:"interest_rate_change" msgpack:"rate"`
}

// Vector returns the factors in generator order.
func (m MacroFactors) Vector() [Dimensions]float64 {
	return [Dimensions]float64{m.GDPChange, m.UnemploymentChange, m.HousePriceChange, m.InterestRateChange}
}

// FromVector builds MacroFactors from a generator draw.
func FromVector(v [Dimensions]float64) MacroFactors {
	return MacroFactors{
		GDPChange:          v[GDP],
		UnemploymentChange: v[Unemployment],
		HousePriceChange:   v[HousePrice],
		InterestRateChange: v[InterestRate],
	}
}

// Validate rejects NaN and infinite factors.
func (m MacroFactors) Validate() error {
	v := m.Vector()
	for i, x := range v {
		if !formulas.AllFinite(x) {
			return domain.Invalid(FactorNames[i], "must be a finite number")
		}
	}
	return nil
}

// Severity is a named stress tier.
type Severity string

const (
	Moderate Severity = "moderate"
	Severe   Severity = "severe"
	Extreme  Severity = "extreme"
)

// AllSeverities lists the tiers from mildest to harshest.
var AllSeverities = []Severity{Moderate, Severe, Extreme}

// ParseSeverity accepts a tier name in any case.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case Moderate:
		return Moderate, nil
	case Severe:
		return Severe, nil
	case Extreme:
		return Extreme, nil
	}
	return "", domain.Invalid("severity", "unknown severity %q", s)
}

func (s Severity) String() string {
	return string(s)
}

// SeverityProfile bundles everything tied to a tier: the macro shock, the VaR
// confidence level that maps onto it and the capital multiplier.
type SeverityProfile struct {
	Severity          Severity     `json:"severity" yaml:"severity"`
	Factors           MacroFactors `json:"factors" yaml:"factors"`
	Confidence        float64      `json:"confidence" yaml:"confidence"`
	CapitalMultiplier float64      `json:"capital_multiplier" yaml:"capital_multiplier"`
}

// NamedScenarios maps each tier to its profile. Build it once and pass it down.
type NamedScenarios map[Severity]SeverityProfile

// DefaultNamedScenarios returns the standard moderate/severe/extreme set.
func DefaultNamedScenarios() NamedScenarios {
	return NamedScenarios{
		Moderate: {
			Severity:          Moderate,
			Factors:           MacroFactors{GDPChange: -1.5, UnemploymentChange: 1.5, HousePriceChange: -10, InterestRateChange: 1},
			Confidence:        0.95,
			CapitalMultiplier: 1.5,
		},
		Severe: {
			Severity:          Severe,
			Factors:           MacroFactors{GDPChange: -3, UnemploymentChange: 3, HousePriceChange: -20, InterestRateChange: 2},
			Confidence:        0.99,
			CapitalMultiplier: 2.0,
		},
		Extreme: {
			Severity:          Extreme,
			Factors:           MacroFactors{GDPChange: -5, UnemploymentChange: 5, HousePriceChange: -35, InterestRateChange: 3},
			Confidence:        0.9999,
			CapitalMultiplier: 3.0,
		},
	}
}

// Get returns the profile for a tier.
func (n NamedScenarios) Get(s Severity) (SeverityProfile, error) {
	p, ok := n[s]
	if !ok {
		return SeverityProfile{}, domain.Invalid("severity", "no scenario configured for %q", s)
	}
	return p, nil
}

// Ordered returns the configured profiles from mildest to harshest.
func (n NamedScenarios) Ordered() []SeverityProfile {
	out := make([]SeverityProfile, 0, len(n))
	for _, s := range AllSeverities {
		if p, ok := n[s]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks every tier is present with sane confidence and multiplier values.
func (n NamedScenarios) Validate() error {
	for _, s := range AllSeverities {
		p, ok := n[s]
		if !ok {
			return domain.Invalid("scenarios", "missing %s scenario", s)
		}
		if err := p.Factors.Validate(); err != nil {
			return fmt.Errorf("%s scenario: %w", s, err)
		}
		if p.Confidence <= 0 || p.Confidence >= 1 {
			return domain.Invalid("confidence", "%s confidence must be in (0,1), got %v", s, p.Confidence)
		}
		if p.CapitalMultiplier <= 0 {
			return domain.Invalid("capital_multiplier", "%s multiplier must be positive", s)
		}
	}
	return nil
}
