// Package capital turns capital positions and stressed figures into capital
// ratios, buffers over regulatory minimums and an adequacy verdict.
package capital

import (
	"github.com/aristath/stresscore/internal/domain"
	"github.com/aristath/stresscore/pkg/formulas"
)

// DefaultWarningThreshold is the buffer, in percentage points, below which a
// compliant institution is still flagged.
const DefaultWarningThreshold = 2.5

// Status is the qualitative adequacy verdict.
type Status string

const (
	StatusAdequate   Status = "adequate"
	StatusWarning    Status = "warning"
	StatusInadequate Status = "inadequate"
)

// Position is a capital stack against risk-weighted assets, in currency units.
type Position struct {
	CET1         float64 `json:"cet1" validate:"gte=0"`
	Tier1        float64 `json:"tier1" validate:"gte=0"`
	TotalCapital float64 `json:"total_capital" validate:"gte=0"`
	RWA          float64 `json:"rwa" validate:"gt=0"`
}

// Minimums are regulatory floor ratios in percent.
type Minimums struct {
	CET1Min         float64 `json:"cet1_min" yaml:"cet1_min" validate:"gte=0,lte=100"`
	Tier1Min        float64 `json:"tier1_min" yaml:"tier1_min" validate:"gte=0,lte=100"`
	TotalCapitalMin float64 `json:"total_capital_min" yaml:"total_capital_min" validate:"gte=0,lte=100"`
}

// DefaultMinimums returns the Pillar 1 floors.
func DefaultMinimums() Minimums {
	return Minimums{CET1Min: 4.5, Tier1Min: 6, TotalCapitalMin: 8}
}

// Ratios are capital tiers over RWA, in percent.
type Ratios struct {
	CET1         float64 `json:"cet1_ratio" msgpack:"cet1"`
	Tier1        float64 `json:"tier1_ratio" msgpack:"tier1"`
	TotalCapital float64 `json:"total_capital_ratio" msgpack:"total"`
}

// Buffers are ratio minus minimum, in percentage points.
type Buffers struct {
	CET1         float64 `json:"cet1_buffer" msgpack:"cet1"`
	Tier1        float64 `json:"tier1_buffer" msgpack:"tier1"`
	TotalCapital float64 `json:"total_capital_buffer" msgpack:"total"`
}

// Min returns the thinnest buffer.
func (b Buffers) Min() float64 {
	m := b.CET1
	if b.Tier1 < m {
		m = b.Tier1
	}
	if b.TotalCapital < m {
		m = b.TotalCapital
	}
	return m
}

// AdequacyResult is the outcome of one adequacy analysis.
type AdequacyResult struct {
	Ratios          Ratios   `json:"ratios" msgpack:"ratios"`
	Buffers         Buffers  `json:"buffers" msgpack:"buffers"`
	Status          Status   `json:"adequacy_status" msgpack:"status"`
	Recommendations []string `json:"recommendations" msgpack:"recommendations"`
}

// CalculateRatios divides each tier by RWA. RWA must be non-zero.
func CalculateRatios(p Position) Ratios {
	return Ratios{
		CET1:         p.CET1 / p.RWA * 100,
		Tier1:        p.Tier1 / p.RWA * 100,
		TotalCapital: p.TotalCapital / p.RWA * 100,
	}
}

// CalculateBuffers subtracts the minimums from the ratios.
func CalculateBuffers(r Ratios, m Minimums) Buffers {
	return Buffers{
		CET1:         r.CET1 - m.CET1Min,
		Tier1:        r.Tier1 - m.Tier1Min,
		TotalCapital: r.TotalCapital - m.TotalCapitalMin,
	}
}

// Classify is inadequate when any buffer is negative and a warning when any
// buffer is below threshold.
func Classify(b Buffers, threshold float64) Status {
	lowest := b.Min()
	switch {
	case lowest < 0:
		return StatusInadequate
	case lowest < threshold:
		return StatusWarning
	default:
		return StatusAdequate
	}
}

// Recommendations returns the advisory actions for a status, most urgent first.
func Recommendations(s Status) []string {
	switch s {
	case StatusInadequate:
		return []string{
			"Raise additional capital immediately",
			"Review dividend policy and suspend distributions",
			"Implement capital conservation measures",
		}
	case StatusWarning:
		return []string{
			"Consider capital strengthening measures",
			"Review growth plans against available capital",
			"Enhance capital planning and monitoring",
		}
	default:
		return []string{
			"Maintain current capital management practices",
			"Continue regular monitoring of capital ratios",
			"Update stress scenarios periodically",
		}
	}
}

// AnalyzeCapitalAdequacy classifies a position with the default warning threshold.
func AnalyzeCapitalAdequacy(current Position, minimums Minimums) AdequacyResult {
	return AnalyzeWithThreshold(current, minimums, DefaultWarningThreshold)
}

// AnalyzeWithThreshold classifies a position against a custom warning threshold.
// It does not validate; a zero RWA produces infinite ratios.
func AnalyzeWithThreshold(current Position, minimums Minimums, threshold float64) AdequacyResult {
	ratios := CalculateRatios(current)
	buffers := CalculateBuffers(ratios, minimums)
	status := Classify(buffers, threshold)
	return AdequacyResult{
		Ratios:          ratios,
		Buffers:         buffers,
		Status:          status,
		Recommendations: Recommendations(status),
	}
}

// Validate rejects non-finite figures, negative capital and non-positive RWA.
func (p Position) Validate() error {
	if !formulas.AllFinite(p.CET1, p.Tier1, p.TotalCapital, p.RWA) {
		return domain.Invalid("position", "all figures must be finite")
	}
	if p.RWA <= 0 {
		return domain.Invalid("rwa", "must be positive, got %v", p.RWA)
	}
	if p.CET1 < 0 || p.Tier1 < 0 || p.TotalCapital < 0 {
		return domain.Invalid("position", "capital amounts must not be negative")
	}
	return nil
}

// Validate rejects non-finite or out-of-range minimums.
func (m Minimums) Validate() error {
	for _, v := range []float64{m.CET1Min, m.Tier1Min, m.TotalCapitalMin} {
		if !formulas.AllFinite(v) || v < 0 || v > 100 {
			return domain.Invalid("minimums", "ratios must be within [0, 100], got %v", v)
		}
	}
	return nil
}

// Analyze is AnalyzeWithThreshold behind input checks.
func Analyze(current Position, minimums Minimums, threshold float64) (AdequacyResult, error) {
	if err := current.Validate(); err != nil {
		return AdequacyResult{}, err
	}
	if err := minimums.Validate(); err != nil {
		return AdequacyResult{}, err
	}
	if !formulas.AllFinite(threshold) || threshold < 0 {
		return AdequacyResult{}, domain.Invalid("warning_threshold", "must be a non-negative number, got %v", threshold)
	}
	return AnalyzeWithThreshold(current, minimums, threshold), nil
}
