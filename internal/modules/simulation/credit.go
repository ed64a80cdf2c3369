package simulation

import (
	"context"
	"math"
	"time"

	"github.com/aristath/stresscore/internal/modules/distribution"
	"github.com/aristath/stresscore/internal/modules/scenario"
	"github.com/aristath/stresscore/internal/modules/transfer"
	"github.com/aristath/stresscore/pkg/formulas"
)

// RunCredit simulates a loan book. Every draw shifts each loan's score by
// the draw's total impact and scales its base risk weight by the impact
// magnitude; the outcome series is the exposure-weighted stressed risk weight.
func (r *Runner) RunCredit(ctx context.Context, req CreditRequest, progress ProgressFunc) (result *CreditResult, err error) {
	if err := r.check(req); err != nil {
		return nil, err
	}
	rs, err := r.resolve(req.RunParams)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { r.observe(KindCredit, rs.info, start, err) }()

	loans := req.Book.Loans
	baseRW := make([]float64, len(loans))
	totalExposure, weightedBase := 0.0, 0.0
	for j, loan := range loans {
		baseRW[j] = transfer.BaseRiskWeight(loan.CreditScore)
		totalExposure += loan.Exposure
		weightedBase += loan.Exposure * baseRW[j]
	}

	sample := r.sample(rs)
	n := len(sample)
	coeffs := r.engine.Coefficients

	riskWeights := make([]float64, n)
	rwa := make([]float64, n)
	scores := make([]float64, n)
	downgrades := make([]float64, n)

	err = r.chunks(ctx, n, progress, func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			total := transfer.ComputeImpacts(scenario.FromVector(sample[i]), coeffs).Total

			var weightedRW, weightedScore, downgraded float64
			for j, loan := range loans {
				stressedScore := transfer.ClampScore(loan.CreditScore + total)
				weightedRW += loan.Exposure * transfer.RiskWeightFromImpact(baseRW[j], total)
				weightedScore += loan.Exposure * stressedScore
				if transfer.BaseRiskWeight(stressedScore) > baseRW[j] {
					downgraded += loan.Exposure
				}
			}
			riskWeights[i] = weightedRW / totalExposure
			rwa[i] = weightedRW / 100
			scores[i] = weightedScore / totalExposure
			downgrades[i] = downgraded / totalExposure
		}
	})
	if err != nil {
		return nil, err
	}

	dist := distribution.Build(riskWeights, rs.info.Bins)
	baselineRWA := weightedBase / 100

	result = &CreditResult{
		Run:                rs.info,
		Distribution:       dist,
		Smoothed:           distribution.Smooth(dist, r.engine.Settings.SmoothingHalfWidth),
		RiskWeight:         distribution.ConfidenceInterval(riskWeights, rs.info.Confidence),
		StressedScore:      distribution.ConfidenceInterval(scores, rs.info.Confidence),
		MeanRiskWeight:     formulas.Mean(riskWeights),
		BaselineRiskWeight: weightedBase / totalExposure,
		BaselineRWA:        baselineRWA,
		StressedRWA:        distribution.ConfidenceInterval(rwa, rs.info.Confidence),
		DowngradeShare:     formulas.Mean(downgrades),
		SampleStats:        sample.Stats(),
	}

	totalMin := r.engine.Minimums.TotalCapitalMin / 100
	for _, prof := range r.engine.Scenarios.Ordered() {
		rw := distribution.Percentile(riskWeights, prof.Confidence)
		stressedRWA := totalExposure * rw / 100
		result.Tiers = append(result.Tiers, CreditTier{
			Severity:          prof.Severity,
			Confidence:        prof.Confidence,
			RiskWeight:        rw,
			TailRiskWeight:    formulas.CalculateUpperCVaR(riskWeights, prof.Confidence),
			StressedRWA:       stressedRWA,
			CapitalMultiplier: prof.CapitalMultiplier,
			CapitalCharge:     math.Max(0, stressedRWA-baselineRWA) * totalMin * prof.CapitalMultiplier,
		})
	}
	return result, nil
}
