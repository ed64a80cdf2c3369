package capital

import (
	"github.com/aristath/stresscore/internal/domain"
	"github.com/aristath/stresscore/internal/modules/scenario"
	"github.com/aristath/stresscore/internal/modules/transfer"
	"github.com/aristath/stresscore/pkg/formulas"
)

// StressBaseline holds the figures the stress bridge moves.
type StressBaseline struct {
	CapitalRatio float64 `json:"capital_ratio" msgpack:"ratio"`
	RWA          float64 `json:"rwa" msgpack:"rwa" validate:"gt=0"`
	NetIncome    float64 `json:"net_income" msgpack:"net_income"`
	Provisions   float64 `json:"provisions" msgpack:"provisions"`
}

// StressResult is the stressed baseline plus the impacts that produced it.
type StressResult struct {
	Baseline           StressBaseline   `json:"baseline" msgpack:"baseline"`
	Stressed           StressBaseline   `json:"stressed" msgpack:"stressed"`
	Impacts            transfer.Impacts `json:"impacts" msgpack:"impacts"`
	CapitalRatioChange float64          `json:"capital_ratio_change" msgpack:"ratio_change"`
}

// CalculateStressTest moves net income by the GDP impact, provisions by the
// unemployment impact and RWA by the HPI impact, each as a percentage of its
// baseline. The three are computed independently and meet only in the ratio:
//
//	stressedRatio = baselineRatio - (stressedProvisions - baselineProvisions) / stressedRWA
func CalculateStressTest(baseline StressBaseline, f scenario.MacroFactors, c transfer.Coefficients) StressResult {
	im := transfer.ComputeImpacts(f, c)

	stressed := StressBaseline{
		NetIncome:  baseline.NetIncome * (1 + im.GDP/100),
		Provisions: baseline.Provisions * (1 + im.Unemployment/100),
		RWA:        baseline.RWA * (1 - im.HPI/100),
	}
	stressed.CapitalRatio = baseline.CapitalRatio - (stressed.Provisions-baseline.Provisions)/stressed.RWA

	return StressResult{
		Baseline:           baseline,
		Stressed:           stressed,
		Impacts:            im,
		CapitalRatioChange: stressed.CapitalRatio - baseline.CapitalRatio,
	}
}

// Validate rejects non-finite figures and non-positive RWA.
func (b StressBaseline) Validate() error {
	if !formulas.AllFinite(b.CapitalRatio, b.RWA, b.NetIncome, b.Provisions) {
		return domain.Invalid("baseline", "all figures must be finite")
	}
	if b.RWA <= 0 {
		return domain.Invalid("rwa", "must be positive, got %v", b.RWA)
	}
	return nil
}

// RunStressTest is CalculateStressTest behind input checks. A scenario whose
// HPI impact wipes out RWA is rejected rather than dividing by zero.
func RunStressTest(baseline StressBaseline, f scenario.MacroFactors, c transfer.Coefficients) (StressResult, error) {
	if err := baseline.Validate(); err != nil {
		return StressResult{}, err
	}
	if err := f.Validate(); err != nil {
		return StressResult{}, err
	}
	res := CalculateStressTest(baseline, f, c)
	if res.Stressed.RWA <= 0 {
		return StressResult{}, domain.Invalid("house_price_change", "stressed RWA is not positive (%v)", res.Stressed.RWA)
	}
	return res, nil
}
