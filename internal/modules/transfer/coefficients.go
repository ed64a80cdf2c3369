// Package transfer maps macro factor vectors onto credit scores, risk weights
// and position P&L. It is the only place the impact formulas live; the capital
// stress bridge and the simulations both call into it.
package transfer

import "github.com/aristath/stresscore/internal/modules/scenario"

// Coefficients is the impact table. Adverse moves carry larger coefficients
// than favourable ones and that asymmetry must not be flattened.
type Coefficients struct {
	GDPAdverse    float64 `json:"gdp_adverse" yaml:"gdp_adverse"`       // gdpChange < 0
	GDPFavourable float64 `json:"gdp_favourable" yaml:"gdp_favourable"` // gdpChange >= 0

	UnemploymentRise float64 `json:"unemployment_rise" yaml:"unemployment_rise"` // unemploymentChange > 0
	UnemploymentFall float64 `json:"unemployment_fall" yaml:"unemployment_fall"` // unemploymentChange <= 0

	HPIScale      float64 `json:"hpi_scale" yaml:"hpi_scale"` // house price change is divided by this first
	HPIDecline    float64 `json:"hpi_decline" yaml:"hpi_decline"`
	HPIAppreciate float64 `json:"hpi_appreciate" yaml:"hpi_appreciate"`

	Rate float64 `json:"rate" yaml:"rate"`
	// IncludeRate adds the rate impact to Total.
	IncludeRate bool `json:"include_rate" yaml:"include_rate"`
}

// DefaultCoefficients returns the calibrated table.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		GDPAdverse:       2.5,
		GDPFavourable:    1.0,
		UnemploymentRise: -6,
		UnemploymentFall: -2,
		HPIScale:         5,
		HPIDecline:       -3.5,
		HPIAppreciate:    1.0,
		Rate:             2,
		IncludeRate:      false,
	}
}

// Impacts holds each factor's contribution in score points (or percent, for
// the earnings/provisions/RWA bridge).
type Impacts struct {
	GDP          float64 `json:"gdp_impact"`
	Unemployment float64 `json:"unemployment_impact"`
	HPI          float64 `json:"hpi_impact"`
	Rate         float64 `json:"rate_impact"`
	Total        float64 `json:"total_impact"`
}

// GDPImpact applies the asymmetric GDP coefficient.
func (c Coefficients) GDPImpact(gdpChange float64) float64 {
	if gdpChange < 0 {
		return gdpChange * c.GDPAdverse
	}
	return gdpChange * c.GDPFavourable
}

// UnemploymentImpact applies the asymmetric unemployment coefficient.
func (c Coefficients) UnemploymentImpact(unemploymentChange float64) float64 {
	if unemploymentChange > 0 {
		return unemploymentChange * c.UnemploymentRise
	}
	return unemploymentChange * c.UnemploymentFall
}

// HPIImpact scales the house price change and applies the asymmetric coefficient.
func (c Coefficients) HPIImpact(housePriceChange float64) float64 {
	scaled := housePriceChange / c.HPIScale
	if housePriceChange < 0 {
		return scaled * c.HPIDecline
	}
	return scaled * c.HPIAppreciate
}

// RateImpact is linear in the rate change.
func (c Coefficients) RateImpact(interestRateChange float64) float64 {
	return interestRateChange * c.Rate
}

// ComputeImpacts evaluates every factor independently and sums them.
func ComputeImpacts(f scenario.MacroFactors, c Coefficients) Impacts {
	im := Impacts{
		GDP:          c.GDPImpact(f.GDPChange),
		Unemployment: c.UnemploymentImpact(f.UnemploymentChange),
		HPI:          c.HPIImpact(f.HousePriceChange),
		Rate:         c.RateImpact(f.InterestRateChange),
	}
	im.Total = im.GDP + im.Unemployment + im.HPI
	if c.IncludeRate {
		im.Total += im.Rate
	}
	return im
}
