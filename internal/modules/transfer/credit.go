package transfer

import (
	"math"

	"github.com/aristath/stresscore/internal/domain"
	"github.com/aristath/stresscore/internal/modules/scenario"
	"github.com/aristath/stresscore/pkg/formulas"
)

// Credit score bounds.
const (
	MinCreditScore = 300
	MaxCreditScore = 850
)

// ScoreBand maps a minimum score onto a base risk weight in percent.
type ScoreBand struct {
	MinScore   float64 `json:"min_score"`
	RiskWeight float64 `json:"risk_weight"`
}

// RiskWeightBands is ordered from best to worst; the first band whose
// MinScore the score reaches wins.
var RiskWeightBands = []ScoreBand{
	{MinScore: 800, RiskWeight: 35},
	{MinScore: 750, RiskWeight: 50},
	{MinScore: 700, RiskWeight: 75},
	{MinScore: 650, RiskWeight: 100},
	{MinScore: 600, RiskWeight: 150},
	{MinScore: math.Inf(-1), RiskWeight: 200},
}

// StressedCreditScore shifts baseScore by the total impact and clamps the
// result to [300, 850].
func StressedCreditScore(baseScore float64, f scenario.MacroFactors, c Coefficients) float64 {
	return ClampScore(baseScore + ComputeImpacts(f, c).Total)
}

// ClampScore bounds a score to the valid range.
func ClampScore(score float64) float64 {
	return math.Max(MinCreditScore, math.Min(MaxCreditScore, score))
}

// BaseRiskWeight looks a score up in the band table.
func BaseRiskWeight(score float64) float64 {
	for _, band := range RiskWeightBands {
		if score >= band.MinScore {
			return band.RiskWeight
		}
	}
	return RiskWeightBands[len(RiskWeightBands)-1].RiskWeight
}

// StressedRiskWeight scales the base weight by the magnitude of the impact:
// baseRiskWeight · (1 + |totalImpact|/100).
func StressedRiskWeight(baseScore float64, f scenario.MacroFactors, c Coefficients) float64 {
	return RiskWeightFromImpact(BaseRiskWeight(baseScore), ComputeImpacts(f, c).Total)
}

// RiskWeightFromImpact applies a precomputed total impact to a base weight.
func RiskWeightFromImpact(baseRiskWeight, totalImpact float64) float64 {
	return baseRiskWeight * (1 + math.Abs(totalImpact)/100)
}

// CreditImpact is the full breakdown returned to API callers.
type CreditImpact struct {
	BaseScore          float64 `json:"base_score"`
	StressedScore      float64 `json:"stressed_score"`
	BaseRiskWeight     float64 `json:"base_risk_weight"`
	StressedRiskWeight float64 `json:"stressed_risk_weight"`
	Impacts            Impacts `json:"impacts"`
}

// EvaluateCredit validates inputs and runs both the score and risk weight paths.
func EvaluateCredit(baseScore float64, f scenario.MacroFactors, c Coefficients) (CreditImpact, error) {
	if !formulas.AllFinite(baseScore) {
		return CreditImpact{}, domain.Invalid("base_score", "must be a finite number")
	}
	if err := f.Validate(); err != nil {
		return CreditImpact{}, err
	}

	im := ComputeImpacts(f, c)
	base := BaseRiskWeight(baseScore)
	return CreditImpact{
		BaseScore:          baseScore,
		StressedScore:      ClampScore(baseScore + im.Total),
		BaseRiskWeight:     base,
		StressedRiskWeight: RiskWeightFromImpact(base, im.Total),
		Impacts:            im,
	}, nil
}
