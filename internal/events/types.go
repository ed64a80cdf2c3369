// Package events provides the in-process event bus used for job lifecycle
// notifications.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	// Job lifecycle
	JobStarted   EventType = "JOB_STARTED"
	JobProgress  EventType = "JOB_PROGRESS"
	JobCompleted EventType = "JOB_COMPLETED"
	JobFailed    EventType = "JOB_FAILED"

	// Engine events
	SimulationCompleted EventType = "SIMULATION_COMPLETED"
	CacheCleaned        EventType = "CACHE_CLEANED"
	ErrorOccurred       EventType = "ERROR_OCCURRED"

	// System
	SystemStatusChanged EventType = "SYSTEM_STATUS_CHANGED"
)

// AllEventTypes lists every type a stream subscriber can ask for.
var AllEventTypes = []EventType{
	JobStarted,
	JobProgress,
	JobCompleted,
	JobFailed,
	SimulationCompleted,
	CacheCleaned,
	ErrorOccurred,
	SystemStatusChanged,
}

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
