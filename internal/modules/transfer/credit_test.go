package transfer

import (
	"math"
	"testing"

	"github.com/aristath/stresscore/internal/domain"
	"github.com/aristath/stresscore/internal/modules/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeImpactsReferenceScenario(t *testing.T) {
	f := scenario.MacroFactors{GDPChange: -3, UnemploymentChange: 2, HousePriceChange: -10, InterestRateChange: 1}

	im := ComputeImpacts(f, DefaultCoefficients())

	assert.InDelta(t, -7.5, im.GDP, 1e-12)
	assert.InDelta(t, -12.0, im.Unemployment, 1e-12)
	assert.InDelta(t, 7.0, im.HPI, 1e-12)
	assert.InDelta(t, 2.0, im.Rate, 1e-12)
	assert.InDelta(t, -12.5, im.Total, 1e-12, "rate impact is excluded by default")

	withRate := DefaultCoefficients()
	withRate.IncludeRate = true
	assert.InDelta(t, -10.5, ComputeImpacts(f, withRate).Total, 1e-12)
}

func TestImpactBranches(t *testing.T) {
	c := DefaultCoefficients()

	tests := []struct {
		name     string
		got      float64
		expected float64
	}{
		{"gdp decline", c.GDPImpact(-2), -5},
		{"gdp growth", c.GDPImpact(2), 2},
		{"gdp flat", c.GDPImpact(0), 0},
		{"unemployment rise", c.UnemploymentImpact(1), -6},
		{"unemployment fall", c.UnemploymentImpact(-1), 2},
		{"hpi decline", c.HPIImpact(-10), 7},
		{"hpi rise", c.HPIImpact(10), 2},
		{"rate", c.RateImpact(-0.5), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.got, 1e-12)
		})
	}
}

func TestGDPAsymmetry(t *testing.T) {
	c := DefaultCoefficients()
	up := ComputeImpacts(scenario.MacroFactors{GDPChange: 2}, c).Total
	down := ComputeImpacts(scenario.MacroFactors{GDPChange: -2}, c).Total

	assert.NotEqual(t, -up, down)
	assert.Greater(t, math.Abs(down), math.Abs(up))
}

func TestStressedCreditScoreIsDeterministic(t *testing.T) {
	f := scenario.MacroFactors{GDPChange: -1.2, UnemploymentChange: 0.7, HousePriceChange: 4, InterestRateChange: 0.25}
	c := DefaultCoefficients()

	first := StressedCreditScore(712, f, c)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, StressedCreditScore(712, f, c))
		assert.Equal(t, StressedRiskWeight(712, f, c), StressedRiskWeight(712, f, c))
	}
}

func TestStressedCreditScoreClamps(t *testing.T) {
	c := DefaultCoefficients()

	assert.Equal(t, 300.0, StressedCreditScore(700, scenario.MacroFactors{GDPChange: -4000}, c))
	assert.Equal(t, 850.0, StressedCreditScore(840, scenario.MacroFactors{GDPChange: 500}, c))
	assert.Equal(t, 300.0, ClampScore(700-10000))

	for _, impact := range []float64{-1e9, -10000, -1, 0, 1, 10000, 1e9} {
		s := ClampScore(650 + impact)
		assert.GreaterOrEqual(t, s, 300.0)
		assert.LessOrEqual(t, s, 850.0)
	}
}

func TestBaseRiskWeight(t *testing.T) {
	tests := []struct {
		score    float64
		expected float64
	}{
		{850, 35},
		{800, 35},
		{799, 50},
		{750, 50},
		{749.9, 75},
		{700, 75},
		{699, 100},
		{650, 100},
		{649, 150},
		{600, 150},
		{599, 200},
		{300, 200},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, BaseRiskWeight(tt.score), "score %v", tt.score)
	}
}

func TestStressedRiskWeight(t *testing.T) {
	f := scenario.MacroFactors{GDPChange: -3, UnemploymentChange: 2, HousePriceChange: -10}

	// total impact -12.5 → 75 · 1.125
	assert.InDelta(t, 84.375, StressedRiskWeight(720, f, DefaultCoefficients()), 1e-9)
	// the magnitude is used, so a favourable scenario also inflates the weight
	assert.InDelta(t, 35*1.02, RiskWeightFromImpact(35, 2), 1e-12)
}

func TestEvaluateCredit(t *testing.T) {
	f := scenario.MacroFactors{GDPChange: -3, UnemploymentChange: 2, HousePriceChange: -10}

	res, err := EvaluateCredit(720, f, DefaultCoefficients())
	require.NoError(t, err)
	assert.InDelta(t, 707.5, res.StressedScore, 1e-12)
	assert.Equal(t, 75.0, res.BaseRiskWeight)
	assert.InDelta(t, 84.375, res.StressedRiskWeight, 1e-9)

	_, err = EvaluateCredit(math.NaN(), f, DefaultCoefficients())
	assert.True(t, domain.IsValidation(err))

	_, err = EvaluateCredit(700, scenario.MacroFactors{GDPChange: math.Inf(1)}, DefaultCoefficients())
	assert.True(t, domain.IsValidation(err))
}
