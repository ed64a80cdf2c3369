package simulation

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stresscore/internal/events"
	"github.com/aristath/stresscore/internal/resultcache"
	"github.com/aristath/stresscore/pkg/metrics"
)

// ResultCache stores finished results. *resultcache.Repository satisfies it.
type ResultCache interface {
	Store(ctx context.Context, key, kind string, value interface{}, ttl time.Duration) error
	GetIfFresh(ctx context.Context, key string, out interface{}) (bool, error)
}

// Service answers simulation requests cache-first. Only reproducible runs
// (an explicit or configured seed) are cached.
type Service struct {
	runner  *Runner
	cache   ResultCache
	ttl     time.Duration
	events  *events.Manager
	metrics *metrics.Recorder
	log     zerolog.Logger
}

// NewService creates a service. cache and em may be nil.
func NewService(runner *Runner, cache ResultCache, ttl time.Duration, em *events.Manager, rec *metrics.Recorder, log zerolog.Logger) *Service {
	return &Service{
		runner:  runner,
		cache:   cache,
		ttl:     ttl,
		events:  em,
		metrics: rec,
		log:     log.With().Str("component", "simulation_service").Logger(),
	}
}

// Runner exposes the underlying runner.
func (s *Service) Runner() *Runner {
	return s.runner
}

// Outcome wraps a result with cache provenance.
type Outcome[T any] struct {
	Result   *T     `json:"result"`
	Cached   bool   `json:"cached"`
	CacheKey string `json:"cache_key,omitempty"`
}

// cacheKey covers the request and the engine calibration, so a changed
// config never serves results computed under the old one.
type cacheKey struct {
	Request interface{} `msgpack:"request"`
	Engine  Engine      `msgpack:"engine"`
}

// Credit runs or fetches a credit simulation.
func (s *Service) Credit(ctx context.Context, req CreditRequest, progress ProgressFunc) (Outcome[CreditResult], error) {
	return cachedRun(ctx, s, KindCredit, req, req.Seed, func() (*CreditResult, error) {
		return s.runner.RunCredit(ctx, req, progress)
	})
}

// Forex runs or fetches an FX simulation.
func (s *Service) Forex(ctx context.Context, req ForexRequest, progress ProgressFunc) (Outcome[ForexResult], error) {
	return cachedRun(ctx, s, KindForex, req, req.Seed, func() (*ForexResult, error) {
		return s.runner.RunForex(ctx, req, progress)
	})
}

// Sweep runs or fetches a severity sweep.
func (s *Service) Sweep(ctx context.Context, req SweepRequest, progress ProgressFunc) (Outcome[SweepResult], error) {
	return cachedRun(ctx, s, KindSweep, req, req.Seed, func() (*SweepResult, error) {
		return s.runner.RunAllSeverities(ctx, req, progress)
	})
}

func cachedRun[T any](ctx context.Context, s *Service, kind Kind, req interface{}, seed *uint64, run func() (*T, error)) (Outcome[T], error) {
	start := time.Now()
	var out Outcome[T]

	if s.cache != nil && (seed != nil || s.runner.engine.Settings.Seed != nil) {
		key, err := resultcache.HashRequest(string(kind), cacheKey{Request: req, Engine: s.runner.engine})
		if err != nil {
			s.log.Warn().Err(err).Str("kind", string(kind)).Msg("Failed to hash request, skipping cache")
		} else {
			out.CacheKey = key
		}
	}

	if out.CacheKey != "" {
		var hit T
		found, err := s.cache.GetIfFresh(ctx, out.CacheKey, &hit)
		if err != nil {
			s.log.Warn().Err(err).Str("cache_key", out.CacheKey).Msg("Result cache lookup failed")
		}
		if s.metrics != nil {
			s.metrics.RecordCacheLookup(found)
		}
		if found {
			out.Result = &hit
			out.Cached = true
			s.completed(kind, &hit, out.CacheKey, true, start)
			return out, nil
		}
	}

	res, err := run()
	if err != nil {
		return out, err
	}
	out.Result = res

	if out.CacheKey != "" {
		if err := s.cache.Store(ctx, out.CacheKey, string(kind), res, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("cache_key", out.CacheKey).Msg("Failed to cache result")
		}
	}
	s.completed(kind, res, out.CacheKey, false, start)
	return out, nil
}

// runInfo is implemented by single-scenario results.
type runInfo interface {
	Info() RunInfo
}

func (s *Service) completed(kind Kind, result interface{}, key string, cached bool, start time.Time) {
	if s.events == nil {
		return
	}
	data := &events.SimulationCompletedData{
		Kind:     string(kind),
		CacheKey: key,
		Cached:   cached,
		Duration: time.Since(start).Seconds(),
	}
	if ri, ok := result.(runInfo); ok {
		info := ri.Info()
		data.Severity = string(info.Severity)
		data.Iterations = info.Iterations
	}
	s.events.EmitTyped(events.SimulationCompleted, "simulation", data)
}
