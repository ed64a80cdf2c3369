package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/stresscore/internal/events"
	"github.com/aristath/stresscore/pkg/metrics"
)

var (
	ErrQueueFull      = errors.New("job queue is full")
	ErrStopped        = errors.New("job manager is stopped")
	ErrUnknownJobType = errors.New("unknown job type")
)

// Config sizes the worker pool.
type Config struct {
	Workers  int
	Capacity int
	// MaxRetained bounds how many finished jobs stay queryable.
	MaxRetained int
}

// Manager runs submitted jobs on a bounded worker pool and keeps their
// state queryable by id.
type Manager struct {
	cfg      Config
	handlers map[JobType]Handler
	events   *events.Manager
	metrics  *metrics.Recorder
	log      zerolog.Logger

	mu       sync.RWMutex
	jobs     map[string]*Job
	finished []string
	queue    chan *Job
	started  bool
	stopped  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a manager. Call Register for each job type, then Start.
func NewManager(cfg Config, em *events.Manager, rec *metrics.Recorder, log zerolog.Logger) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 64
	}
	if cfg.MaxRetained <= 0 {
		cfg.MaxRetained = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:      cfg,
		handlers: make(map[JobType]Handler),
		events:   em,
		metrics:  rec,
		log:      log.With().Str("component", "job_manager").Logger(),
		jobs:     make(map[string]*Job),
		queue:    make(chan *Job, cfg.Capacity),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register binds a handler to a job type. Not safe after Start.
func (m *Manager) Register(jobType JobType, h Handler) {
	m.handlers[jobType] = h
}

// Start launches the workers.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		m.log.Warn().Msg("Job manager already started, ignoring")
		return
	}
	m.started = true

	for i := 0; i < m.cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
	m.log.Info().Int("workers", m.cfg.Workers).Int("capacity", m.cfg.Capacity).Msg("Job manager started")
}

// Submit queues a job and returns its id.
func (m *Manager) Submit(jobType JobType, payload interface{}) (string, error) {
	if _, ok := m.handlers[jobType]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}

	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   payload,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return "", ErrStopped
	}
	select {
	case m.queue <- job:
		m.jobs[job.ID] = job
	default:
		m.mu.Unlock()
		return "", ErrQueueFull
	}
	depth := len(m.queue)
	m.mu.Unlock()

	m.setDepth(depth)
	m.log.Debug().Str("job_id", job.ID).Str("job_type", string(jobType)).Msg("Job queued")
	return job.ID, nil
}

// Get returns a snapshot of a job.
func (m *Manager) Get(id string) (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Snapshot{}, false
	}
	return job.snapshot(), true
}

// QueueDepth returns the number of jobs waiting for a worker.
func (m *Manager) QueueDepth() int {
	return len(m.queue)
}

// Stop refuses new jobs, lets workers drain the queue and waits for them
// until ctx expires, at which point running handlers are cancelled.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	close(m.queue)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.cancel()
		m.log.Info().Msg("Job manager stopped")
		return nil
	case <-ctx.Done():
		m.cancel()
		<-done
		return fmt.Errorf("job manager stop: %w", ctx.Err())
	}
}

func (m *Manager) worker(n int) {
	defer m.wg.Done()
	for job := range m.queue {
		m.setDepth(len(m.queue))
		m.run(job)
	}
	m.log.Debug().Int("worker", n).Msg("Worker exited")
}

func (m *Manager) run(job *Job) {
	start := time.Now()

	m.mu.Lock()
	job.Status = StatusRunning
	job.StartedAt = start
	m.mu.Unlock()
	m.emit(job, "started", nil, 0)

	reporter := NewProgressReporter(m.events, job.ID, job.Type)
	reporter.sink = func(info *events.JobProgressInfo) {
		m.mu.Lock()
		job.Progress = info
		m.mu.Unlock()
	}

	result, err := m.invoke(job, reporter)
	elapsed := time.Since(start)

	m.mu.Lock()
	job.CompletedAt = time.Now()
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
	} else {
		job.Status = StatusCompleted
		job.Result = result
	}
	status := job.Status
	m.retain(job.ID)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordJob(string(job.Type), string(status))
	}
	m.emit(job, string(status), err, elapsed)

	if err != nil {
		m.log.Error().Err(err).Str("job_id", job.ID).Str("job_type", string(job.Type)).Dur("duration", elapsed).Msg("Job failed")
		return
	}
	m.log.Info().Str("job_id", job.ID).Str("job_type", string(job.Type)).Dur("duration", elapsed).Msg("Job completed")
}

// invoke runs the handler and turns a panic into a job failure.
func (m *Manager) invoke(job *Job, reporter *ProgressReporter) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return m.handlers[job.Type].Handle(m.ctx, job.Payload, reporter)
}

// retain records a finished job and evicts the oldest beyond MaxRetained.
// Caller holds m.mu.
func (m *Manager) retain(id string) {
	m.finished = append(m.finished, id)
	for len(m.finished) > m.cfg.MaxRetained {
		delete(m.jobs, m.finished[0])
		m.finished = m.finished[1:]
	}
}

func (m *Manager) emit(job *Job, status string, err error, elapsed time.Duration) {
	if m.events == nil {
		return
	}
	data := &events.JobStatusData{
		JobID:       job.ID,
		JobType:     string(job.Type),
		Status:      status,
		Description: GetJobDescription(job.Type),
		Duration:    elapsed.Seconds(),
		Timestamp:   time.Now(),
	}
	if err != nil {
		data.Error = err.Error()
	}
	m.events.EmitTyped(data.EventType(), "queue", data)
}

func (m *Manager) setDepth(n int) {
	if m.metrics != nil {
		m.metrics.SetQueueDepth(n)
	}
}
