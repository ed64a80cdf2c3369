package server

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stresscore/internal/events"
)

// StatusMonitor periodically checks system status and emits events on changes
type StatusMonitor struct {
	eventManager   *events.Manager
	systemHandlers *SystemHandlers
	log            zerolog.Logger

	stopOnce sync.Once
	stop     chan struct{}

	// Track previous state
	lastStatus     string
	lastQueueDepth int
}

// NewStatusMonitor creates a new status monitor
func NewStatusMonitor(eventManager *events.Manager, systemHandlers *SystemHandlers, log zerolog.Logger) *StatusMonitor {
	return &StatusMonitor{
		eventManager:   eventManager,
		systemHandlers: systemHandlers,
		log:            log.With().Str("component", "status_monitor").Logger(),
		stop:           make(chan struct{}),
		lastQueueDepth: -1,
	}
}

// Start begins periodic status monitoring
func (m *StatusMonitor) Start(interval time.Duration) {
	go m.monitor(interval)
}

// Stop ends the monitoring loop. Safe to call more than once or before Start.
func (m *StatusMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// monitor runs the periodic monitoring loop
func (m *StatusMonitor) monitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Do initial check
	m.checkSystemStatus()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.checkSystemStatus()
		}
	}
}

// checkSystemStatus emits SYSTEM_STATUS_CHANGED when the health verdict or
// the queue depth differs from the previous sample
func (m *StatusMonitor) checkSystemStatus() {
	if m.systemHandlers == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := m.systemHandlers.GetSystemStatusSnapshot(ctx)
	if err != nil {
		m.log.Debug().Err(err).Msg("Status sampled with warnings")
	}

	if snap.Status == m.lastStatus && snap.QueueDepth == m.lastQueueDepth {
		return
	}
	m.lastStatus = snap.Status
	m.lastQueueDepth = snap.QueueDepth

	if m.eventManager == nil {
		return
	}
	data := &events.SystemStatusData{Status: snap.Status, QueueDepth: snap.QueueDepth}
	if err != nil {
		data.Message = err.Error()
	}
	m.eventManager.EmitTyped(events.SystemStatusChanged, "status_monitor", data)
}
