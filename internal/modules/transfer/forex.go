package transfer

import (
	"math"

	"github.com/aristath/stresscore/internal/modules/scenario"
)

// StressMultiplier scales position volatility under a macro scenario. Each
// effect is floored at 1 so benign scenarios never dampen volatility:
//
//	gdpEffect          = max(1, 1 - gdpChange·0.2)
//	unemploymentEffect = 1 + max(0, unemploymentChange·0.1)
//	rateEffect         = 1 + max(0, interestRateChange·0.15)
func StressMultiplier(f scenario.MacroFactors) float64 {
	gdpEffect := math.Max(1, 1-f.GDPChange*0.2)
	unemploymentEffect := 1 + math.Max(0, f.UnemploymentChange*0.1)
	rateEffect := 1 + math.Max(0, f.InterestRateChange*0.15)
	return gdpEffect * unemploymentEffect * rateEffect
}

// ReturnShock turns a standard-normal variate into a stressed return.
func ReturnShock(z, volatility, multiplier float64) float64 {
	return z * volatility * multiplier
}

// PositionPnL is exposure times return shock.
func PositionPnL(exposure, returnShock float64) float64 {
	return exposure * returnShock
}

// PortfolioPnL sums position P&L. exposures and shocks are paired by index;
// extra entries on either side are ignored.
func PortfolioPnL(exposures, shocks []float64) float64 {
	n := len(exposures)
	if len(shocks) < n {
		n = len(shocks)
	}
	total := 0.0
	for i := 0; i < n; i++ {
		total += PositionPnL(exposures[i], shocks[i])
	}
	return total
}
