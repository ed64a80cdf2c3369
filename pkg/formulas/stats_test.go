package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankIndex(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		fraction float64
		expected int
	}{
		{name: "lower tail of 100", n: 100, fraction: 0.025, expected: 2},
		{name: "median of odd length", n: 5, fraction: 0.5, expected: 2},
		{name: "floor not round", n: 10, fraction: 0.99, expected: 9},
		{name: "clamped above", n: 10, fraction: 1.0, expected: 9},
		{name: "clamped below", n: 10, fraction: -0.5, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RankIndex(tt.n, tt.fraction))
		})
	}
}

func TestMinMax(t *testing.T) {
	lo, hi := MinMax([]float64{3, -1, 7, 2})
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 7.0, hi)

	lo, hi = MinMax(nil)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 0.0, hi)
}

func TestSortedDoesNotMutate(t *testing.T) {
	in := []float64{3, 1, 2}
	out := Sorted(in)

	assert.Equal(t, []float64{1, 2, 3}, out)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestDescriptiveStats(t *testing.T) {
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.InDelta(t, 5.0, Mean(data), 1e-12)
	assert.InDelta(t, 2.138, StdDev(data), 0.001)
	assert.InDelta(t, 4.571, Variance(data), 0.001)
	assert.Equal(t, 0.0, StdDev([]float64{1}))
	assert.Equal(t, 0.0, Mean(nil))
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}
	z := []float64{5, 4, 3, 2, 1}

	assert.InDelta(t, 1.0, Correlation(x, y), 1e-12)
	assert.InDelta(t, -1.0, Correlation(x, z), 1e-12)
	assert.InDelta(t, 2.5, Covariance(x, x), 1e-12)
	assert.Equal(t, 0.0, Correlation(x, y[:3]))
}

func TestAllFinite(t *testing.T) {
	assert.True(t, AllFinite(1, -2, 0))
	assert.False(t, AllFinite(1, math.NaN()))
	assert.False(t, AllFinite(math.Inf(-1)))
	assert.True(t, AllFinite())
}
