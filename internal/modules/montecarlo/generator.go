// Package montecarlo draws correlated macroeconomic scenarios.
//
// Two transforms are available. StrategyRawCorrelation multiplies the
// independent normals by the lower triangle of the correlation matrix itself,
// which is what the stress screens have always produced; keep it when results
// must match earlier runs. StrategyCholesky uses the proper Cholesky factor,
// so the sample correlation converges on the target matrix.
package montecarlo

import (
	"fmt"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/aristath/stresscore/internal/domain"
	"github.com/aristath/stresscore/internal/modules/scenario"
)

const dims = scenario.Dimensions

// Strategy selects the lower-triangular transform applied to each draw.
type Strategy string

const (
	StrategyRawCorrelation Strategy = "raw_correlation"
	StrategyCholesky       Strategy = "cholesky"
)

// ParseStrategy accepts "" as the default raw-correlation strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyRawCorrelation:
		return StrategyRawCorrelation, nil
	case StrategyCholesky:
		return StrategyCholesky, nil
	}
	return "", domain.Invalid("strategy", "unknown strategy %q", s)
}

// Draw is one correlated factor vector in scenario.MacroFactors order.
type Draw = [dims]float64

// Sample is an ordered sequence of independent draws.
type Sample []Draw

// Normal produces standard-normal variates. distuv.Normal satisfies it.
type Normal interface {
	Rand() float64
}

// Options control a generator run.
type Options struct {
	Strategy Strategy
	// Seed makes the run reproducible. Nil seeds from the clock.
	Seed *uint64
}

// ResolveSeed returns the seed a run will use.
func (o Options) ResolveSeed() uint64 {
	if o.Seed != nil {
		return *o.Seed
	}
	return uint64(time.Now().UnixNano())
}

// NewNormal returns a seeded standard-normal sampler.
func NewNormal(seed uint64) distuv.Normal {
	return distuv.Normal{
		Mu:    0,
		Sigma: 1,
		Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
	}
}

// Loadings returns the lower-triangular transform for a strategy.
// StrategyCholesky fails on matrices that are not positive definite.
func Loadings(corr scenario.CorrelationMatrix, strategy Strategy) ([dims][dims]float64, error) {
	var l [dims][dims]float64
	switch strategy {
	case StrategyCholesky:
		return corr.CholeskyFactor()
	case StrategyRawCorrelation, "":
		for j := 0; j < dims; j++ {
			for k := 0; k <= j; k++ {
				l[j][k] = corr[j][k]
			}
		}
		return l, nil
	}
	return l, domain.Invalid("strategy", "unknown strategy %q", strategy)
}

// Generate is the unchecked inner loop: for every draw it samples four
// independent normals z, forms out[j] = Σ_{k≤j} loadings[j][k]·z[k] and adds
// means[j]. A non-positive iteration count yields an empty sample.
func Generate(means Draw, loadings [dims][dims]float64, iterations int, normal Normal) Sample {
	if iterations <= 0 {
		return Sample{}
	}

	sample := make(Sample, iterations)
	var z Draw
	for i := range sample {
		for k := range z {
			z[k] = normal.Rand()
		}
		for j := 0; j < dims; j++ {
			acc := 0.0
			for k := 0; k <= j; k++ {
				acc += loadings[j][k] * z[k]
			}
			sample[i][j] = acc + means[j]
		}
	}
	return sample
}

// GenerateCorrelatedRandoms validates its inputs and draws iterations
// correlated factor vectors centred on means.
func GenerateCorrelatedRandoms(means Draw, corr scenario.CorrelationMatrix, iterations int, opts Options) (Sample, error) {
	if iterations <= 0 {
		return nil, domain.Invalid("iterations", "must be positive, got %d", iterations)
	}
	if err := scenario.FromVector(means).Validate(); err != nil {
		return nil, err
	}
	if err := corr.ValidateShape(); err != nil {
		return nil, err
	}

	loadings, err := Loadings(corr, opts.Strategy)
	if err != nil {
		return nil, fmt.Errorf("build loadings: %w", err)
	}

	return Generate(means, loadings, iterations, NewNormal(opts.ResolveSeed())), nil
}
