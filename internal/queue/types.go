package queue

import (
	"context"
	"time"

	"github.com/aristath/stresscore/internal/events"
)

// JobType represents the type of job
type JobType string

const (
	JobTypeCreditSimulation JobType = "credit_simulation"
	JobTypeForexSimulation  JobType = "forex_simulation"
	JobTypeSeveritySweep    JobType = "severity_sweep"
	JobTypeCacheCleanup     JobType = "result_cache_cleanup"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions will happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Handler executes one job type. The returned value becomes the job result.
type Handler interface {
	Handle(ctx context.Context, payload interface{}, progress *ProgressReporter) (interface{}, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, payload interface{}, progress *ProgressReporter) (interface{}, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, payload interface{}, progress *ProgressReporter) (interface{}, error) {
	return f(ctx, payload, progress)
}

// Job represents a queued job. Fields are guarded by the owning Manager.
type Job struct {
	ID          string
	Type        JobType
	Payload     interface{}
	Status      Status
	Progress    *events.JobProgressInfo
	Result      interface{}
	Error       string
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// Snapshot is a point-in-time copy of a job for API responses.
type Snapshot struct {
	ID          string                  `json:"id"`
	Type        JobType                 `json:"type"`
	Description string                  `json:"description"`
	Status      Status                  `json:"status"`
	Progress    *events.JobProgressInfo `json:"progress,omitempty"`
	Result      interface{}             `json:"result,omitempty"`
	Error       string                  `json:"error,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	StartedAt   *time.Time              `json:"started_at,omitempty"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
}

func (j *Job) snapshot() Snapshot {
	s := Snapshot{
		ID:          j.ID,
		Type:        j.Type,
		Description: GetJobDescription(j.Type),
		Status:      j.Status,
		Result:      j.Result,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
	}
	if j.Progress != nil {
		p := *j.Progress
		s.Progress = &p
	}
	if !j.StartedAt.IsZero() {
		t := j.StartedAt
		s.StartedAt = &t
	}
	if !j.CompletedAt.IsZero() {
		t := j.CompletedAt
		s.CompletedAt = &t
	}
	return s
}

// GetJobDescription returns a human-readable description for a job type
func GetJobDescription(jobType JobType) string {
	descriptions := map[JobType]string{
		JobTypeCreditSimulation: "Running credit book Monte Carlo simulation",
		JobTypeForexSimulation:  "Running FX book Monte Carlo simulation",
		JobTypeSeveritySweep:    "Running all severity scenarios",
		JobTypeCacheCleanup:     "Cleaning up expired simulation results",
	}

	if desc, exists := descriptions[jobType]; exists {
		return desc
	}

	// Fallback to job type string
	return string(jobType)
}
