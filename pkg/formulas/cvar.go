package formulas

import "math"

// CalculateCVaR calculates Conditional Value at Risk (CVaR) at the specified confidence level.
// CVaR is the expected outcome given that the outcome falls in the worst (lowest)
// tail beyond the VaR threshold.
//
// Args:
//   - outcomes: Simulated or historical outcomes (negative values are losses)
//   - confidence: Confidence level (e.g., 0.95 for 95%)
//
// Returns:
//   - CVaR value (negative for losses, positive for gains in tail)
func CalculateCVaR(outcomes []float64, confidence float64) float64 {
	if len(outcomes) == 0 {
		return 0.0
	}

	if len(outcomes) == 1 {
		return outcomes[0]
	}

	sorted := Sorted(outcomes)

	// For 95% confidence, we want the worst 5% of outcomes
	tailProbability := 1.0 - confidence
	tailCount := int(math.Ceil(float64(len(sorted)) * tailProbability))

	if tailCount == 0 {
		tailCount = 1
	}
	if tailCount > len(sorted) {
		tailCount = len(sorted)
	}

	return Mean(sorted[:tailCount])
}

// CalculateUpperCVaR is the mirror of CalculateCVaR for series where large values
// are adverse (risk weights, RWA). It averages the highest (1-confidence) share.
func CalculateUpperCVaR(outcomes []float64, confidence float64) float64 {
	if len(outcomes) == 0 {
		return 0.0
	}

	sorted := Sorted(outcomes)
	tailCount := int(math.Ceil(float64(len(sorted)) * (1.0 - confidence)))
	if tailCount == 0 {
		tailCount = 1
	}
	if tailCount > len(sorted) {
		tailCount = len(sorted)
	}

	return Mean(sorted[len(sorted)-tailCount:])
}
