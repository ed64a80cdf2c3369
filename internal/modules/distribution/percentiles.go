package distribution

import (
	"math"

	"github.com/aristath/stresscore/pkg/formulas"
)

// Interval is a nearest-rank confidence interval around the median.
type Interval struct {
	Confidence float64 `json:"confidence" msgpack:"confidence"`
	Lower      float64 `json:"lower" msgpack:"lower"`
	Median     float64 `json:"median" msgpack:"median"`
	Upper      float64 `json:"upper" msgpack:"upper"`
}

// ConfidenceInterval sorts the series and reads values at
//
//	lower  = floor(n·(1-c)/2)
//	upper  = floor(n·(1-(1-c)/2))
//	median = floor(n/2)
//
// with no interpolation. Indices are clamped to the series; an empty series
// yields a zero interval.
func ConfidenceInterval(series []float64, confidence float64) Interval {
	out := Interval{Confidence: confidence}
	n := len(series)
	if n == 0 {
		return out
	}

	sorted := formulas.Sorted(series)
	tail := (1 - confidence) / 2
	out.Lower = sorted[formulas.RankIndex(n, tail)]
	out.Upper = sorted[formulas.RankIndex(n, 1-tail)]
	out.Median = sorted[formulas.RankIndex(n, 0.5)]
	return out
}

// ConfidenceIntervalValidated is ConfidenceInterval behind input checks.
func ConfidenceIntervalValidated(series []float64, confidence float64) (Interval, error) {
	if err := ValidateSeries(series); err != nil {
		return Interval{}, err
	}
	if err := ValidateConfidence(confidence); err != nil {
		return Interval{}, err
	}
	return ConfidenceInterval(series, confidence), nil
}

// Percentile returns the nearest-rank value at fraction p of the sorted series.
func Percentile(series []float64, p float64) float64 {
	if len(series) == 0 {
		return 0
	}
	sorted := formulas.Sorted(series)
	return sorted[formulas.RankIndex(len(sorted), p)]
}

// HistoricalVaR reads the loss directly from the sorted series at index
// floor(n·(1-confidence)) and returns its absolute value.
func HistoricalVaR(series []float64, confidence float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return math.Abs(Percentile(series, 1-confidence))
}

// ExpectedShortfall is the absolute mean of the worst (1-confidence) share.
func ExpectedShortfall(series []float64, confidence float64) float64 {
	return math.Abs(formulas.CalculateCVaR(series, confidence))
}
