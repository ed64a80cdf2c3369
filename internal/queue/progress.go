package queue

import (
	"sync"
	"time"

	"github.com/aristath/stresscore/internal/events"
)

// ProgressReporter allows jobs to report progress during execution.
type ProgressReporter struct {
	eventManager *events.Manager
	jobID        string
	jobType      JobType
	minInterval  time.Duration // Minimum interval between progress events

	mu         sync.Mutex
	lastReport time.Time
	// sink receives every report, throttled or not, so job snapshots stay current.
	sink func(*events.JobProgressInfo)
}

// NewProgressReporter creates a new progress reporter with throttling.
// Default throttle is 100ms (10 updates/sec max).
func NewProgressReporter(em *events.Manager, jobID string, jobType JobType) *ProgressReporter {
	return &ProgressReporter{
		eventManager: em,
		jobID:        jobID,
		jobType:      jobType,
		minInterval:  100 * time.Millisecond,
	}
}

// Report emits a progress event (throttled to prevent flooding).
// 100% completion always bypasses the throttle.
func (pr *ProgressReporter) Report(current, total int, message string) {
	pr.report(&events.JobProgressInfo{Current: current, Total: total, Message: message}, current == total)
}

// ReportPhase is Report with a phase label.
func (pr *ProgressReporter) ReportPhase(current, total int, message, phase string) {
	pr.report(&events.JobProgressInfo{Current: current, Total: total, Message: message, Phase: phase}, current == total)
}

// ReportUnthrottled emits a progress event that always bypasses the throttle.
func (pr *ProgressReporter) ReportUnthrottled(current, total int, message string) {
	pr.report(&events.JobProgressInfo{Current: current, Total: total, Message: message}, true)
}

// Func returns a done/total callback suitable for simulation runs.
func (pr *ProgressReporter) Func(message string) func(done, total int) {
	return func(done, total int) {
		pr.Report(done, total, message)
	}
}

func (pr *ProgressReporter) report(info *events.JobProgressInfo, force bool) {
	if pr == nil {
		return
	}

	pr.mu.Lock()
	if pr.sink != nil {
		pr.sink(info)
	}
	now := time.Now()
	if !force && now.Sub(pr.lastReport) < pr.minInterval {
		pr.mu.Unlock()
		return
	}
	pr.lastReport = now
	pr.mu.Unlock()

	if pr.eventManager == nil {
		return
	}
	pr.eventManager.EmitTyped(events.JobProgress, "queue", &events.JobStatusData{
		JobID:       pr.jobID,
		JobType:     string(pr.jobType),
		Status:      "progress",
		Description: GetJobDescription(pr.jobType),
		Progress:    info,
		Timestamp:   now,
	})
}
