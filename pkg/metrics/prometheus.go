// Package metrics exposes prometheus instrumentation for simulations, jobs and HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Recorder records engine metrics on its own registry so tests can build
// as many recorders as they need.
type Recorder struct {
	registry       *prometheus.Registry
	simulations    *prometheus.CounterVec
	simDuration    *prometheus.HistogramVec
	iterations     *prometheus.CounterVec
	jobs           *prometheus.CounterVec
	queueDepth     prometheus.Gauge
	cacheLookups   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		simulations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stresscore_simulations_total",
				Help: "Total number of Monte Carlo simulations run",
			},
			[]string{"kind", "outcome"},
		),
		simDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stresscore_simulation_duration_seconds",
				Help:    "Duration of Monte Carlo simulations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"kind"},
		),
		iterations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stresscore_simulation_iterations_total",
				Help: "Total number of scenario draws generated",
			},
			[]string{"kind"},
		),
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stresscore_jobs_total",
				Help: "Async simulation jobs by final status",
			},
			[]string{"kind", "status"},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stresscore_job_queue_depth",
				Help: "Jobs waiting for a worker",
			},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stresscore_result_cache_lookups_total",
				Help: "Result cache lookups by outcome",
			},
			[]string{"result"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stresscore_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}

	r.registry.MustRegister(
		r.simulations,
		r.simDuration,
		r.iterations,
		r.jobs,
		r.queueDepth,
		r.cacheLookups,
		r.requestLatency,
		collectors.NewGoCollector(),
	)

	return r
}

// Registry returns the registry backing the /metrics endpoint.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveSimulation records a finished simulation run.
func (r *Recorder) ObserveSimulation(kind string, iterations int, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.simulations.WithLabelValues(kind, outcome).Inc()
	r.simDuration.WithLabelValues(kind).Observe(d.Seconds())
	if err == nil {
		r.iterations.WithLabelValues(kind).Add(float64(iterations))
	}
}

// RecordJob records a job reaching a terminal status.
func (r *Recorder) RecordJob(kind, status string) {
	r.jobs.WithLabelValues(kind, status).Inc()
}

// SetQueueDepth updates the number of queued jobs.
func (r *Recorder) SetQueueDepth(n int) {
	r.queueDepth.Set(float64(n))
}

// RecordCacheLookup records a result cache hit or miss.
func (r *Recorder) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveRequest records HTTP request latency.
func (r *Recorder) ObserveRequest(method, route, status string, d time.Duration) {
	r.requestLatency.WithLabelValues(method, route, status).Observe(d.Seconds())
}
