package capital

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/aristath/stresscore/internal/modules/scenario"
	"github.com/aristath/stresscore/internal/modules/transfer"
)

// SeverityPlan is the capital picture of a position under one named scenario.
type SeverityPlan struct {
	Severity          scenario.Severity `json:"severity"`
	CapitalMultiplier float64           `json:"capital_multiplier"`
	Impacts           transfer.Impacts  `json:"impacts"`
	RWAInflation      float64           `json:"rwa_inflation_pct"`
	StressedRWA       float64           `json:"stressed_rwa"`
	Result            AdequacyResult    `json:"result"`
	// Shortfall is the extra capital needed to lift every tier back to its
	// minimum plus the warning threshold. Zero when none is needed.
	Shortfall decimal.Decimal `json:"shortfall"`
}

// PlanSeverities stresses a position under every named scenario. RWA is
// inflated by |total impact| times the tier's capital multiplier, the same
// shape as the risk-weight transfer, and the stressed position is reanalysed.
func PlanSeverities(p Position, m Minimums, named scenario.NamedScenarios, c transfer.Coefficients, threshold float64) []SeverityPlan {
	profiles := named.Ordered()
	plans := make([]SeverityPlan, 0, len(profiles))
	for _, prof := range profiles {
		im := transfer.ComputeImpacts(prof.Factors, c)
		inflation := math.Abs(im.Total) * prof.CapitalMultiplier

		stressed := p
		stressed.RWA = p.RWA * (1 + inflation/100)

		plans = append(plans, SeverityPlan{
			Severity:          prof.Severity,
			CapitalMultiplier: prof.CapitalMultiplier,
			Impacts:           im,
			RWAInflation:      inflation,
			StressedRWA:       stressed.RWA,
			Result:            AnalyzeWithThreshold(stressed, m, threshold),
			Shortfall:         Shortfall(stressed, m, threshold),
		})
	}
	return plans
}

// Shortfall returns the largest amount any tier is short of its minimum plus
// threshold, rounded to cents.
func Shortfall(p Position, m Minimums, threshold float64) decimal.Decimal {
	rwa := decimal.NewFromFloat(p.RWA)
	hundred := decimal.NewFromInt(100)
	buffer := decimal.NewFromFloat(threshold)

	tiers := []struct {
		held    float64
		minimum float64
	}{
		{p.CET1, m.CET1Min},
		{p.Tier1, m.Tier1Min},
		{p.TotalCapital, m.TotalCapitalMin},
	}

	worst := decimal.Zero
	for _, tier := range tiers {
		required := decimal.NewFromFloat(tier.minimum).Add(buffer).Mul(rwa).Div(hundred)
		gap := required.Sub(decimal.NewFromFloat(tier.held))
		if gap.GreaterThan(worst) {
			worst = gap
		}
	}
	return worst.Round(2)
}
