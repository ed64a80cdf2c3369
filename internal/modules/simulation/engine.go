// Package simulation runs the end-to-end Monte Carlo pipelines: correlated
// macro draws, transfer to per-book outcomes, and distribution summaries.
package simulation

import (
	"fmt"

	"github.com/aristath/stresscore/internal/modules/capital"
	"github.com/aristath/stresscore/internal/modules/montecarlo"
	"github.com/aristath/stresscore/internal/modules/scenario"
	"github.com/aristath/stresscore/internal/modules/transfer"
)

// Settings are the engine-wide run defaults. Request fields left at their
// zero value fall back to these.
type Settings struct {
	Iterations         int     `yaml:"iterations" json:"iterations" default:"10000" validate:"gt=0,lte=1000000"`
	Bins               int     `yaml:"bins" json:"bins" default:"50" validate:"gt=0,lte=1000"`
	Confidence         float64 `yaml:"confidence" json:"confidence" default:"0.95" validate:"gt=0,lt=1"`
	SmoothingHalfWidth int     `yaml:"smoothing_half_width" json:"smoothing_half_width" default:"3" validate:"gte=0,lte=50"`
	Strategy           string  `yaml:"strategy" json:"strategy" default:"raw_correlation" validate:"oneof=raw_correlation cholesky"`
	DefaultSeverity    string  `yaml:"default_severity" json:"default_severity" default:"severe" validate:"oneof=moderate severe extreme"`
	ChunkSize          int     `yaml:"chunk_size" json:"chunk_size" default:"2500" validate:"gt=0"`
	WarningThreshold   float64 `yaml:"warning_threshold" json:"warning_threshold" default:"2.5" validate:"gte=0"`
	// RepairCorrelation replaces a non-PSD matrix with its nearest PSD
	// neighbour instead of failing Cholesky runs.
	RepairCorrelation bool    `yaml:"repair_correlation" json:"repair_correlation"`
	Seed              *uint64 `yaml:"seed" json:"seed,omitempty"`
}

// DefaultSettings mirrors the struct tag defaults for callers that do not
// load a config file.
func DefaultSettings() Settings {
	return Settings{
		Iterations:         10000,
		Bins:               50,
		Confidence:         0.95,
		SmoothingHalfWidth: 3,
		Strategy:           string(montecarlo.StrategyRawCorrelation),
		DefaultSeverity:    string(scenario.Severe),
		ChunkSize:          2500,
		WarningThreshold:   capital.DefaultWarningThreshold,
	}
}

// Engine is the immutable configuration threaded through every run.
type Engine struct {
	Settings     Settings                   `json:"settings"`
	Scenarios    scenario.NamedScenarios    `json:"scenarios"`
	Correlation  scenario.CorrelationMatrix `json:"correlation"`
	Coefficients transfer.Coefficients      `json:"coefficients"`
	Minimums     capital.Minimums           `json:"minimums"`
}

// DefaultEngine returns the calibrated engine.
func DefaultEngine() Engine {
	return Engine{
		Settings:     DefaultSettings(),
		Scenarios:    scenario.DefaultNamedScenarios(),
		Correlation:  scenario.DefaultCorrelation(),
		Coefficients: transfer.DefaultCoefficients(),
		Minimums:     capital.DefaultMinimums(),
	}
}

// Prepare validates the engine and, when RepairCorrelation is set, replaces
// an indefinite correlation matrix with its nearest PSD neighbour.
func (e Engine) Prepare() (Engine, error) {
	if err := e.Scenarios.Validate(); err != nil {
		return e, fmt.Errorf("named scenarios: %w", err)
	}
	if err := e.Minimums.Validate(); err != nil {
		return e, err
	}
	if err := e.Correlation.ValidateShape(); err != nil {
		return e, fmt.Errorf("correlation: %w", err)
	}
	if err := e.Correlation.Validate(); err != nil {
		if !e.Settings.RepairCorrelation {
			return e, fmt.Errorf("correlation: %w", err)
		}
		repaired, rerr := e.Correlation.NearestPSD()
		if rerr != nil {
			return e, fmt.Errorf("repair correlation: %w", rerr)
		}
		e.Correlation = repaired
	}
	if _, err := montecarlo.ParseStrategy(e.Settings.Strategy); err != nil {
		return e, err
	}
	return e, nil
}
