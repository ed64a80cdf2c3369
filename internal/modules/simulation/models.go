package simulation

import (
	"github.com/aristath/stresscore/internal/modules/distribution"
	"github.com/aristath/stresscore/internal/modules/montecarlo"
	"github.com/aristath/stresscore/internal/modules/scenario"
)

// Kind names a simulation pipeline.
type Kind string

const (
	KindCredit Kind = "credit"
	KindForex  Kind = "forex"
	KindSweep  Kind = "severity_sweep"
)

// ProgressFunc receives the number of evaluated draws after each chunk.
type ProgressFunc func(done, total int)

// Loan is one credit exposure.
type Loan struct {
	ID          string  `json:"id" msgpack:"id" validate:"required"`
	Exposure    float64 `json:"exposure" msgpack:"exposure" validate:"gt=0"`
	CreditScore float64 `json:"credit_score" msgpack:"credit_score" validate:"gte=300,lte=850"`
}

// CreditBook is a loan portfolio.
type CreditBook struct {
	Loans []Loan `json:"loans" msgpack:"loans" validate:"required,min=1,dive"`
}

// FXPosition is one currency exposure. Negative exposure is a short.
type FXPosition struct {
	Pair       string  `json:"pair" msgpack:"pair" validate:"required"`
	Exposure   float64 `json:"exposure" msgpack:"exposure" validate:"ne=0"`
	Volatility float64 `json:"volatility" msgpack:"volatility" validate:"gt=0,lte=5"`
}

// ForexBook is a set of currency positions.
type ForexBook struct {
	Positions []FXPosition `json:"positions" msgpack:"positions" validate:"required,min=1,dive"`
}

// RunParams are the per-request overrides shared by every pipeline. Zero
// values fall back to the engine settings. Means takes precedence over
// Severity.
type RunParams struct {
	Severity   scenario.Severity      `json:"severity,omitempty" msgpack:"severity" validate:"omitempty,oneof=moderate severe extreme"`
	Means      *scenario.MacroFactors `json:"means,omitempty" msgpack:"means"`
	Iterations int                    `json:"iterations,omitempty" msgpack:"iterations" validate:"gte=0,lte=1000000"`
	Bins       int                    `json:"bins,omitempty" msgpack:"bins" validate:"gte=0,lte=1000"`
	Confidence float64                `json:"confidence,omitempty" msgpack:"confidence" validate:"gte=0,lt=1"`
	Strategy   string                 `json:"strategy,omitempty" msgpack:"strategy" validate:"omitempty,oneof=raw_correlation cholesky"`
	Seed       *uint64                `json:"seed,omitempty" msgpack:"seed"`
}

// CreditRequest runs a credit book through one scenario.
type CreditRequest struct {
	Book CreditBook `json:"book" msgpack:"book"`
	RunParams
}

// ForexRequest runs an FX book through one scenario.
type ForexRequest struct {
	Book ForexBook `json:"book" msgpack:"book"`
	RunParams
}

// SweepRequest runs one or both books through every named scenario.
// Means is rejected and Severity ignored; each run takes its scenario's factors.
type SweepRequest struct {
	Credit *CreditBook `json:"credit,omitempty" msgpack:"credit"`
	Forex  *ForexBook  `json:"forex,omitempty" msgpack:"forex"`
	RunParams
}

// RunInfo echoes the resolved parameters of a run.
type RunInfo struct {
	Severity   scenario.Severity     `json:"severity,omitempty" msgpack:"severity"`
	Means      scenario.MacroFactors `json:"means" msgpack:"means"`
	Iterations int                   `json:"iterations" msgpack:"iterations"`
	Bins       int                   `json:"bins" msgpack:"bins"`
	Confidence float64               `json:"confidence" msgpack:"confidence"`
	Strategy   montecarlo.Strategy   `json:"strategy" msgpack:"strategy"`
	Seed       uint64                `json:"seed" msgpack:"seed"`
}

// CreditTier is the upper-tail view of the credit outcome at one severity.
type CreditTier struct {
	Severity          scenario.Severity `json:"severity" msgpack:"severity"`
	Confidence        float64           `json:"confidence" msgpack:"confidence"`
	RiskWeight        float64           `json:"risk_weight" msgpack:"risk_weight"`
	TailRiskWeight    float64           `json:"tail_risk_weight" msgpack:"tail_risk_weight"`
	StressedRWA       float64           `json:"stressed_rwa" msgpack:"stressed_rwa"`
	CapitalMultiplier float64           `json:"capital_multiplier" msgpack:"multiplier"`
	CapitalCharge     float64           `json:"capital_charge" msgpack:"charge"`
}

// CreditResult summarises a credit run. Risk weights are exposure-weighted
// percentages.
type CreditResult struct {
	Run                RunInfo                   `json:"run" msgpack:"run"`
	Distribution       distribution.Distribution `json:"distribution" msgpack:"distribution"`
	Smoothed           distribution.Distribution `json:"smoothed" msgpack:"smoothed"`
	RiskWeight         distribution.Interval     `json:"risk_weight_interval" msgpack:"rw_interval"`
	StressedScore      distribution.Interval     `json:"stressed_score_interval" msgpack:"score_interval"`
	MeanRiskWeight     float64                   `json:"mean_risk_weight" msgpack:"mean_rw"`
	BaselineRiskWeight float64                   `json:"baseline_risk_weight" msgpack:"base_rw"`
	BaselineRWA        float64                   `json:"baseline_rwa" msgpack:"base_rwa"`
	StressedRWA        distribution.Interval     `json:"stressed_rwa_interval" msgpack:"rwa_interval"`
	DowngradeShare     float64                   `json:"downgrade_share" msgpack:"downgrade_share"`
	Tiers              []CreditTier              `json:"tiers" msgpack:"tiers"`
	SampleStats        montecarlo.SampleStats    `json:"sample_stats" msgpack:"sample_stats"`
}

// ForexResult summarises an FX run. P&L is in exposure currency units.
type ForexResult struct {
	Run                  RunInfo                   `json:"run" msgpack:"run"`
	Distribution         distribution.Distribution `json:"distribution" msgpack:"distribution"`
	Smoothed             distribution.Distribution `json:"smoothed" msgpack:"smoothed"`
	Measures             distribution.RiskMeasures `json:"measures" msgpack:"measures"`
	HistoricalVaR        float64                   `json:"historical_var" msgpack:"historical_var"`
	ExpectedShortfall    float64                   `json:"expected_shortfall" msgpack:"expected_shortfall"`
	ScenarioMultiplier   float64                   `json:"scenario_multiplier" msgpack:"scenario_multiplier"`
	MeanStressMultiplier float64                   `json:"mean_stress_multiplier" msgpack:"mean_multiplier"`
	SampleStats          montecarlo.SampleStats    `json:"sample_stats" msgpack:"sample_stats"`
}

// SweepResult holds one result per named scenario and book.
type SweepResult struct {
	Credit map[scenario.Severity]*CreditResult `json:"credit,omitempty" msgpack:"credit"`
	Forex  map[scenario.Severity]*ForexResult  `json:"forex,omitempty" msgpack:"forex"`
}

// Info returns the resolved run parameters.
func (r *CreditResult) Info() RunInfo { return r.Run }

// Info returns the resolved run parameters.
func (r *ForexResult) Info() RunInfo { return r.Run }
