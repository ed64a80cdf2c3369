package capital

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stresscore/internal/domain"
)

func TestAnalyzeCapitalAdequacy_StatusThresholds(t *testing.T) {
	tests := []struct {
		name     string
		position Position
		minimums Minimums
		want     Status
	}{
		{
			name:     "ratio below minimum",
			position: Position{CET1: 8, Tier1: 8, TotalCapital: 8, RWA: 100},
			minimums: Minimums{CET1Min: 9, Tier1Min: 9, TotalCapitalMin: 9},
			want:     StatusInadequate,
		},
		{
			name:     "buffer of 2.4 points",
			position: Position{CET1: 6.9, Tier1: 8.4, TotalCapital: 10.4, RWA: 100},
			minimums: DefaultMinimums(),
			want:     StatusWarning,
		},
		{
			name:     "buffer of 3.0 points",
			position: Position{CET1: 7.5, Tier1: 9, TotalCapital: 11, RWA: 100},
			minimums: DefaultMinimums(),
			want:     StatusAdequate,
		},
		{
			name:     "one thin tier is enough for a warning",
			position: Position{CET1: 20, Tier1: 20, TotalCapital: 9, RWA: 100},
			minimums: DefaultMinimums(),
			want:     StatusWarning,
		},
		{
			name:     "one negative tier is enough to fail",
			position: Position{CET1: 4, Tier1: 20, TotalCapital: 20, RWA: 100},
			minimums: DefaultMinimums(),
			want:     StatusInadequate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeCapitalAdequacy(tt.position, tt.minimums)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, Recommendations(tt.want), got.Recommendations)
		})
	}
}

func TestAnalyzeCapitalAdequacy_RatiosAndBuffers(t *testing.T) {
	got := AnalyzeCapitalAdequacy(Position{CET1: 120, Tier1: 140, TotalCapital: 160, RWA: 1000}, DefaultMinimums())

	assert.InDelta(t, 12.0, got.Ratios.CET1, 1e-9)
	assert.InDelta(t, 14.0, got.Ratios.Tier1, 1e-9)
	assert.InDelta(t, 16.0, got.Ratios.TotalCapital, 1e-9)
	assert.InDelta(t, 7.5, got.Buffers.CET1, 1e-9)
	assert.InDelta(t, 8.0, got.Buffers.Tier1, 1e-9)
	assert.InDelta(t, 8.0, got.Buffers.TotalCapital, 1e-9)
	assert.InDelta(t, 7.5, got.Buffers.Min(), 1e-9)
	assert.Equal(t, StatusAdequate, got.Status)
}

func TestAnalyzeWithThreshold(t *testing.T) {
	p := Position{CET1: 7.5, Tier1: 9, TotalCapital: 11, RWA: 100}

	assert.Equal(t, StatusAdequate, AnalyzeWithThreshold(p, DefaultMinimums(), 2.5).Status)
	assert.Equal(t, StatusWarning, AnalyzeWithThreshold(p, DefaultMinimums(), 3.5).Status)
	assert.Equal(t, StatusAdequate, AnalyzeWithThreshold(p, DefaultMinimums(), 0).Status)
}

func TestRecommendations(t *testing.T) {
	for _, s := range []Status{StatusAdequate, StatusWarning, StatusInadequate} {
		recs := Recommendations(s)
		assert.Len(t, recs, 3, "status=%s", s)
	}
	assert.Contains(t, Recommendations(StatusInadequate)[0], "immediately")
	assert.NotEqual(t, Recommendations(StatusWarning), Recommendations(StatusAdequate))
}

func TestAnalyze_Validation(t *testing.T) {
	tests := []struct {
		name      string
		position  Position
		minimums  Minimums
		threshold float64
	}{
		{"zero rwa", Position{CET1: 1, Tier1: 1, TotalCapital: 1, RWA: 0}, DefaultMinimums(), 2.5},
		{"negative rwa", Position{CET1: 1, Tier1: 1, TotalCapital: 1, RWA: -5}, DefaultMinimums(), 2.5},
		{"nan capital", Position{CET1: math.NaN(), Tier1: 1, TotalCapital: 1, RWA: 100}, DefaultMinimums(), 2.5},
		{"negative capital", Position{CET1: -1, Tier1: 1, TotalCapital: 1, RWA: 100}, DefaultMinimums(), 2.5},
		{"minimum above 100", Position{CET1: 1, Tier1: 1, TotalCapital: 1, RWA: 100}, Minimums{CET1Min: 101}, 2.5},
		{"negative threshold", Position{CET1: 1, Tier1: 1, TotalCapital: 1, RWA: 100}, DefaultMinimums(), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Analyze(tt.position, tt.minimums, tt.threshold)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))
		})
	}

	got, err := Analyze(Position{CET1: 8, Tier1: 8, TotalCapital: 8, RWA: 100}, Minimums{CET1Min: 9, Tier1Min: 9, TotalCapitalMin: 9}, DefaultWarningThreshold)
	require.NoError(t, err)
	assert.Equal(t, StatusInadequate, got.Status)
}
