package simulation

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/stresscore/internal/domain"
	"github.com/aristath/stresscore/internal/modules/montecarlo"
	"github.com/aristath/stresscore/internal/modules/scenario"
	"github.com/aristath/stresscore/pkg/metrics"
)

// seedStride separates the random streams of chunks and severities.
const seedStride uint64 = 0x632be59bd9b4e019

// Runner executes simulation requests against a prepared engine.
type Runner struct {
	engine   Engine
	validate *validator.Validate
	metrics  *metrics.Recorder
	log      zerolog.Logger
}

// NewRunner creates a runner. The engine must already be prepared.
func NewRunner(engine Engine, rec *metrics.Recorder, log zerolog.Logger) *Runner {
	return &Runner{
		engine:   engine,
		validate: validator.New(),
		metrics:  rec,
		log:      log.With().Str("component", "simulation_runner").Logger(),
	}
}

// Engine returns the configuration the runner uses.
func (r *Runner) Engine() Engine {
	return r.engine
}

// resolved is a RunParams with every default applied.
type resolved struct {
	info     RunInfo
	loadings [scenario.Dimensions][scenario.Dimensions]float64
}

func (r *Runner) check(v interface{}) error {
	if err := r.validate.Struct(v); err != nil {
		return &domain.ValidationError{Field: "request", Reason: err.Error()}
	}
	return nil
}

func (r *Runner) resolve(p RunParams) (resolved, error) {
	s := r.engine.Settings
	info := RunInfo{
		Iterations: p.Iterations,
		Bins:       p.Bins,
		Confidence: p.Confidence,
	}
	if info.Iterations == 0 {
		info.Iterations = s.Iterations
	}
	if info.Bins == 0 {
		info.Bins = s.Bins
	}
	if info.Confidence == 0 {
		info.Confidence = s.Confidence
	}

	strategyName := p.Strategy
	if strategyName == "" {
		strategyName = s.Strategy
	}
	strategy, err := montecarlo.ParseStrategy(strategyName)
	if err != nil {
		return resolved{}, err
	}
	info.Strategy = strategy

	switch {
	case p.Means != nil:
		if err := p.Means.Validate(); err != nil {
			return resolved{}, err
		}
		info.Means = *p.Means
	default:
		sev := p.Severity
		if sev == "" {
			sev = scenario.Severity(s.DefaultSeverity)
		}
		prof, err := r.engine.Scenarios.Get(sev)
		if err != nil {
			return resolved{}, err
		}
		info.Severity = sev
		info.Means = prof.Factors
	}

	seed := p.Seed
	if seed == nil {
		seed = s.Seed
	}
	info.Seed = montecarlo.Options{Seed: seed}.ResolveSeed()

	loadings, err := montecarlo.Loadings(r.engine.Correlation, strategy)
	if err != nil {
		return resolved{}, fmt.Errorf("build loadings: %w", err)
	}
	return resolved{info: info, loadings: loadings}, nil
}

// sample draws the correlated macro scenarios for a resolved run.
func (r *Runner) sample(res resolved) montecarlo.Sample {
	return montecarlo.Generate(res.info.Means.Vector(), res.loadings, res.info.Iterations, montecarlo.NewNormal(res.info.Seed))
}

// chunks evaluates fn over [0, total) in ChunkSize slices on an errgroup.
// fn receives the chunk index and its bounds and must only write to its own
// slice of any shared output.
func (r *Runner) chunks(ctx context.Context, total int, progress ProgressFunc, fn func(chunk, lo, hi int)) error {
	size := r.engine.Settings.ChunkSize
	if size <= 0 {
		size = total
	}

	g, gctx := errgroup.WithContext(ctx)
	var done atomic.Int64
	for chunk, lo := 0, 0; lo < total; chunk, lo = chunk+1, lo+size {
		hi := lo + size
		if hi > total {
			hi = total
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(chunk, lo, hi)
			n := done.Add(int64(hi - lo))
			if progress != nil {
				progress(int(n), total)
			}
			return nil
		})
	}
	return g.Wait()
}

// observe records metrics and logs the outcome of a run.
func (r *Runner) observe(kind Kind, info RunInfo, start time.Time, err error) {
	elapsed := time.Since(start)
	if r.metrics != nil {
		r.metrics.ObserveSimulation(string(kind), info.Iterations, elapsed, err)
	}
	if err != nil {
		r.log.Error().Err(err).Str("kind", string(kind)).Msg("Simulation failed")
		return
	}
	r.log.Debug().
		Str("kind", string(kind)).
		Str("severity", string(info.Severity)).
		Str("strategy", string(info.Strategy)).
		Int("iterations", info.Iterations).
		Uint64("seed", info.Seed).
		Dur("duration", elapsed).
		Msg("Simulation completed")
}

// RunAllSeverities runs the supplied books through every named scenario
// concurrently. Each severity gets its own seed derived from the base seed,
// so a seeded sweep is reproducible.
func (r *Runner) RunAllSeverities(ctx context.Context, req SweepRequest, progress ProgressFunc) (*SweepResult, error) {
	if req.Credit == nil && req.Forex == nil {
		return nil, domain.Invalid("request", "at least one of credit or forex is required")
	}
	if req.Means != nil {
		return nil, domain.Invalid("means", "a sweep uses each named scenario; run credit or forex for custom means")
	}
	if err := r.check(req); err != nil {
		return nil, err
	}

	base := req.Seed
	if base == nil {
		base = r.engine.Settings.Seed
	}
	baseSeed := montecarlo.Options{Seed: base}.ResolveSeed()

	profiles := r.engine.Scenarios.Ordered()
	runs := len(profiles)
	if req.Credit != nil && req.Forex != nil {
		runs *= 2
	}
	var finished atomic.Int64
	report := func() {
		n := finished.Add(1)
		if progress != nil {
			progress(int(n), runs)
		}
	}

	out := &SweepResult{}
	creditResults := make([]*CreditResult, len(profiles))
	forexResults := make([]*ForexResult, len(profiles))

	g, gctx := errgroup.WithContext(ctx)
	for i, prof := range profiles {
		seed := baseSeed + uint64(i+1)*seedStride
		params := req.RunParams
		params.Severity = prof.Severity
		params.Seed = &seed

		if req.Credit != nil {
			g.Go(func() error {
				res, err := r.RunCredit(gctx, CreditRequest{Book: *req.Credit, RunParams: params}, nil)
				if err != nil {
					return fmt.Errorf("%s credit: %w", prof.Severity, err)
				}
				creditResults[i] = res
				report()
				return nil
			})
		}
		if req.Forex != nil {
			g.Go(func() error {
				res, err := r.RunForex(gctx, ForexRequest{Book: *req.Forex, RunParams: params}, nil)
				if err != nil {
					return fmt.Errorf("%s forex: %w", prof.Severity, err)
				}
				forexResults[i] = res
				report()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if req.Credit != nil {
		out.Credit = make(map[scenario.Severity]*CreditResult, len(profiles))
		for i, prof := range profiles {
			out.Credit[prof.Severity] = creditResults[i]
		}
	}
	if req.Forex != nil {
		out.Forex = make(map[scenario.Severity]*ForexResult, len(profiles))
		for i, prof := range profiles {
			out.Forex[prof.Severity] = forexResults[i]
		}
	}
	return out, nil
}
