package distribution

import (
	"github.com/aristath/stresscore/internal/modules/scenario"
	"github.com/aristath/stresscore/pkg/formulas"
)

// TierMeasure ties a VaR figure to a severity tier and its capital multiplier.
type TierMeasure struct {
	Severity          scenario.Severity `json:"severity" msgpack:"severity"`
	Confidence        float64           `json:"confidence" msgpack:"confidence"`
	VaR               float64           `json:"var" msgpack:"var"`
	ExpectedShortfall float64           `json:"expected_shortfall" msgpack:"es"`
	CapitalMultiplier float64           `json:"capital_multiplier" msgpack:"multiplier"`
	CapitalCharge     float64           `json:"capital_charge" msgpack:"charge"`
}

// RiskMeasures collects the summary statistics of one outcome series.
type RiskMeasures struct {
	Interval Interval      `json:"interval" msgpack:"interval"`
	Tiers    []TierMeasure `json:"tiers" msgpack:"tiers"`
	Mean     float64       `json:"mean" msgpack:"mean"`
	StdDev   float64       `json:"std_dev" msgpack:"std_dev"`
	Min      float64       `json:"min" msgpack:"min"`
	Max      float64       `json:"max" msgpack:"max"`
}

// Measures computes the interval at intervalConfidence from the raw series and
// one VaR tier per named scenario from d, which may be smoothed. The capital
// charge is VaR scaled by the tier multiplier.
func Measures(series []float64, d Distribution, named scenario.NamedScenarios, intervalConfidence float64) RiskMeasures {
	lo, hi := formulas.MinMax(series)
	m := RiskMeasures{
		Interval: ConfidenceInterval(series, intervalConfidence),
		Mean:     formulas.Mean(series),
		StdDev:   formulas.StdDev(series),
		Min:      lo,
		Max:      hi,
	}

	for _, p := range named.Ordered() {
		v := VaR(d, p.Confidence)
		m.Tiers = append(m.Tiers, TierMeasure{
			Severity:          p.Severity,
			Confidence:        p.Confidence,
			VaR:               v,
			ExpectedShortfall: ExpectedShortfall(series, p.Confidence),
			CapitalMultiplier: p.CapitalMultiplier,
			CapitalCharge:     v * p.CapitalMultiplier,
		})
	}
	return m
}

// Tier returns the measure for a severity, if present.
func (m RiskMeasures) Tier(s scenario.Severity) (TierMeasure, bool) {
	for _, t := range m.Tiers {
		if t.Severity == s {
			return t, true
		}
	}
	return TierMeasure{}, false
}
