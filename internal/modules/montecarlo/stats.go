package montecarlo

import (
	"github.com/aristath/stresscore/internal/modules/scenario"
	"github.com/aristath/stresscore/pkg/formulas"
)

// SampleStats summarises a generated sample per factor.
type SampleStats struct {
	Means       [dims]float64              `json:"means"`
	StdDevs     [dims]float64              `json:"std_devs"`
	Correlation scenario.CorrelationMatrix `json:"correlation"`
}

// Column extracts one factor across all draws.
func (s Sample) Column(j int) []float64 {
	col := make([]float64, len(s))
	for i, d := range s {
		col[i] = d[j]
	}
	return col
}

// Factors converts every draw into MacroFactors.
func (s Sample) Factors() []scenario.MacroFactors {
	out := make([]scenario.MacroFactors, len(s))
	for i, d := range s {
		out[i] = scenario.FromVector(d)
	}
	return out
}

// Stats computes empirical means, standard deviations and pairwise correlation.
func (s Sample) Stats() SampleStats {
	var st SampleStats
	cols := make([][]float64, dims)
	for j := 0; j < dims; j++ {
		cols[j] = s.Column(j)
		st.Means[j] = formulas.Mean(cols[j])
		st.StdDevs[j] = formulas.StdDev(cols[j])
	}
	for i := 0; i < dims; i++ {
		st.Correlation[i][i] = 1
		for j := i + 1; j < dims; j++ {
			r := formulas.Correlation(cols[i], cols[j])
			st.Correlation[i][j] = r
			st.Correlation[j][i] = r
		}
	}
	return st
}
