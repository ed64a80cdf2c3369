package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/aristath/stresscore/internal/modules/capital"
	"github.com/aristath/stresscore/internal/modules/scenario"
	"github.com/aristath/stresscore/internal/modules/simulation"
	"github.com/aristath/stresscore/internal/modules/transfer"
)

// ScenarioOverride replaces one named scenario. Zero confidence or multiplier
// keeps the built-in value.
type ScenarioOverride struct {
	Factors           scenario.MacroFactors `yaml:"factors"`
	Confidence        float64               `yaml:"confidence" validate:"gte=0,lt=1"`
	CapitalMultiplier float64               `yaml:"capital_multiplier" validate:"gte=0"`
}

// StressConfig is the optional YAML file that recalibrates the engine.
//
//	engine:
//	  iterations: 20000
//	  strategy: cholesky
//	scenarios:
//	  severe:
//	    factors: {gdp_change: -4, unemployment_change: 3.5, house_price_change: -25, interest_rate_change: 2}
//	correlation: [[1, -0.7, 0.6, -0.3], ...]
type StressConfig struct {
	Engine       simulation.Settings         `yaml:"engine"`
	Scenarios    map[string]ScenarioOverride `yaml:"scenarios" validate:"dive"`
	Correlation  *scenario.CorrelationMatrix `yaml:"correlation"`
	Coefficients *transfer.Coefficients      `yaml:"coefficients"`
	Minimums     *capital.Minimums           `yaml:"minimums"`
}

// LoadStressConfig reads path, or returns the defaults when path is empty.
// Defaults are applied before decoding so explicit zeros in the file stick.
func LoadStressConfig(path string) (*StressConfig, error) {
	sc := &StressConfig{}
	if err := defaults.Set(&sc.Engine); err != nil {
		return nil, fmt.Errorf("apply stress config defaults: %w", err)
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read stress config: %w", err)
		}
		if err := yaml.Unmarshal(b, sc); err != nil {
			return nil, fmt.Errorf("parse stress config %s: %w", path, err)
		}
	}

	if err := validator.New().Struct(sc); err != nil {
		return nil, fmt.Errorf("invalid stress config: %w", err)
	}
	return sc, nil
}

// BuildEngine merges the overrides onto the calibrated defaults and
// validates the result.
func (sc *StressConfig) BuildEngine() (simulation.Engine, error) {
	e := simulation.DefaultEngine()
	e.Settings = sc.Engine

	for name, o := range sc.Scenarios {
		sev, err := scenario.ParseSeverity(name)
		if err != nil {
			return e, fmt.Errorf("stress config scenarios: %w", err)
		}
		p := e.Scenarios[sev]
		p.Factors = o.Factors
		if o.Confidence > 0 {
			p.Confidence = o.Confidence
		}
		if o.CapitalMultiplier > 0 {
			p.CapitalMultiplier = o.CapitalMultiplier
		}
		e.Scenarios[sev] = p
	}
	if sc.Correlation != nil {
		e.Correlation = *sc.Correlation
	}
	if sc.Coefficients != nil {
		e.Coefficients = *sc.Coefficients
	}
	if sc.Minimums != nil {
		e.Minimums = *sc.Minimums
	}

	return e.Prepare()
}
