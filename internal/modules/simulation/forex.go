package simulation

import (
	"context"
	"time"

	"github.com/aristath/stresscore/internal/modules/distribution"
	"github.com/aristath/stresscore/internal/modules/montecarlo"
	"github.com/aristath/stresscore/internal/modules/scenario"
	"github.com/aristath/stresscore/internal/modules/transfer"
	"github.com/aristath/stresscore/pkg/formulas"
)

// RunForex simulates an FX book. Each draw's macro factors set a volatility
// multiplier; every position then takes an independent normal return shock
// scaled by its volatility and that multiplier. The outcome series is
// portfolio P&L.
func (r *Runner) RunForex(ctx context.Context, req ForexRequest, progress ProgressFunc) (result *ForexResult, err error) {
	if err := r.check(req); err != nil {
		return nil, err
	}
	rs, err := r.resolve(req.RunParams)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { r.observe(KindForex, rs.info, start, err) }()

	positions := req.Book.Positions
	exposures := make([]float64, len(positions))
	for j, p := range positions {
		exposures[j] = p.Exposure
	}

	sample := r.sample(rs)
	n := len(sample)
	pnl := make([]float64, n)
	multipliers := make([]float64, n)

	err = r.chunks(ctx, n, progress, func(chunk, lo, hi int) {
		normal := montecarlo.NewNormal(rs.info.Seed ^ (uint64(chunk+1) * seedStride))
		shocks := make([]float64, len(positions))
		for i := lo; i < hi; i++ {
			m := transfer.StressMultiplier(scenario.FromVector(sample[i]))
			multipliers[i] = m
			for j, p := range positions {
				shocks[j] = transfer.ReturnShock(normal.Rand(), p.Volatility, m)
			}
			pnl[i] = transfer.PortfolioPnL(exposures, shocks)
		}
	})
	if err != nil {
		return nil, err
	}

	dist := distribution.Build(pnl, rs.info.Bins)
	smoothed := distribution.Smooth(dist, r.engine.Settings.SmoothingHalfWidth)

	return &ForexResult{
		Run:                  rs.info,
		Distribution:         dist,
		Smoothed:             smoothed,
		Measures:             distribution.Measures(pnl, smoothed, r.engine.Scenarios, rs.info.Confidence),
		HistoricalVaR:        distribution.HistoricalVaR(pnl, rs.info.Confidence),
		ExpectedShortfall:    distribution.ExpectedShortfall(pnl, rs.info.Confidence),
		ScenarioMultiplier:   transfer.StressMultiplier(rs.info.Means),
		MeanStressMultiplier: formulas.Mean(multipliers),
		SampleStats:          sample.Stats(),
	}, nil
}
