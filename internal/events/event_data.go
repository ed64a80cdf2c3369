package events

import "time"

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// JobProgressInfo contains progress information for a job.
type JobProgressInfo struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`
	// Phase identifies the running stage, e.g. "sampling" or "severity_sweep".
	Phase string `json:"phase,omitempty"`
}

// JobStatusData contains data for job lifecycle events
type JobStatusData struct {
	JobID       string           `json:"job_id"`
	JobType     string           `json:"job_type"`
	Status      string           `json:"status"` // "started", "progress", "completed", "failed"
	Description string           `json:"description"`
	Progress    *JobProgressInfo `json:"progress,omitempty"`
	Error       string           `json:"error,omitempty"`
	Duration    float64          `json:"duration,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// EventType returns the event type for JobStatusData.
// The actual event type is determined by the Status field.
func (d *JobStatusData) EventType() EventType {
	switch d.Status {
	case "progress":
		return JobProgress
	case "completed":
		return JobCompleted
	case "failed":
		return JobFailed
	default:
		return JobStarted
	}
}

// SimulationCompletedData summarises a finished synchronous or queued run.
type SimulationCompletedData struct {
	Kind       string  `json:"kind"`
	Severity   string  `json:"severity,omitempty"`
	Iterations int     `json:"iterations"`
	CacheKey   string  `json:"cache_key,omitempty"`
	Cached     bool    `json:"cached"`
	Duration   float64 `json:"duration"`
}

// EventType returns the event type for SimulationCompletedData
func (d *SimulationCompletedData) EventType() EventType {
	return SimulationCompleted
}

// CacheCleanedData reports a cache cleanup pass.
type CacheCleanedData struct {
	Removed int64 `json:"removed"`
}

// EventType returns the event type for CacheCleanedData
func (d *CacheCleanedData) EventType() EventType {
	return CacheCleaned
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// SystemStatusData is published when the health verdict or queue pressure changes.
type SystemStatusData struct {
	Status     string `json:"status"`
	QueueDepth int    `json:"queue_depth"`
	Message    string `json:"message,omitempty"`
}

// EventType returns the event type for SystemStatusData
func (d *SystemStatusData) EventType() EventType {
	return SystemStatusChanged
}

// GetTypedData converts the event's data map back into its typed form.
// Returns nil when the type is unknown or the data does not decode.
func (e *Event) GetTypedData() EventData {
	if e.Data == nil {
		return nil
	}

	var data EventData
	switch e.Type {
	case JobStarted, JobProgress, JobCompleted, JobFailed:
		data = &JobStatusData{}
	case SimulationCompleted:
		data = &SimulationCompletedData{}
	case CacheCleaned:
		data = &CacheCleanedData{}
	case ErrorOccurred:
		data = &ErrorEventData{}
	case SystemStatusChanged:
		data = &SystemStatusData{}
	default:
		return nil
	}

	if err := convertMapToStruct(e.Data, data); err != nil {
		return nil
	}
	return data
}
