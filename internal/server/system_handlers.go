package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/stresscore/internal/database"
	"github.com/aristath/stresscore/internal/modules/simulation"
	"github.com/aristath/stresscore/internal/queue"
	"github.com/aristath/stresscore/internal/resultcache"
	"github.com/aristath/stresscore/internal/scheduler"
)

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	resultsDB   *database.DB
	cache       *resultcache.Repository
	jobs        *queue.Manager
	scheduler   *scheduler.Scheduler
	engine      simulation.Engine
	// systemStats is swapped in tests to avoid sampling the host
	systemStats func() (float64, float64)
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	resultsDB *database.DB,
	cache *resultcache.Repository,
	jobs *queue.Manager,
	sched *scheduler.Scheduler,
	engine simulation.Engine,
) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		startupTime: time.Now(),
		resultsDB:   resultsDB,
		cache:       cache,
		jobs:        jobs,
		scheduler:   sched,
		engine:      engine,
	}
	h.systemStats = h.getSystemStats
	return h
}

// ScheduledJob describes one cron entry
type ScheduledJob struct {
	Name    string     `json:"name"`
	NextRun *time.Time `json:"next_run,omitempty"`
	PrevRun *time.Time `json:"prev_run,omitempty"`
}

// SystemStatusResponse represents system status
type SystemStatusResponse struct {
	Status        string          `json:"status"` // "healthy" or "unhealthy"
	UptimeSeconds float64         `json:"uptime_seconds"`
	CPUPercent    float64         `json:"cpu_percent"`
	MemoryPercent float64         `json:"memory_percent"`
	QueueDepth    int             `json:"queue_depth"`
	CachedResults int64           `json:"cached_results"`
	Database      *database.Stats `json:"database,omitempty"`
	ScheduledJobs []ScheduledJob  `json:"scheduled_jobs"`
	Strategy      string          `json:"strategy"`
	Iterations    int             `json:"iterations"`
	Seeded        bool            `json:"seeded"`
}

// GetSystemStatusSnapshot collects the current system status. A non-nil
// error means some figures could not be read; the snapshot is still usable.
func (h *SystemHandlers) GetSystemStatusSnapshot(ctx context.Context) (SystemStatusResponse, error) {
	resp := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: time.Since(h.startupTime).Seconds(),
		ScheduledJobs: []ScheduledJob{},
		Strategy:      h.engine.Settings.Strategy,
		Iterations:    h.engine.Settings.Iterations,
		Seeded:        h.engine.Settings.Seed != nil,
	}
	resp.CPUPercent, resp.MemoryPercent = h.systemStats()

	if h.jobs != nil {
		resp.QueueDepth = h.jobs.QueueDepth()
	}

	var errs []error
	if h.resultsDB != nil {
		if err := h.resultsDB.QuickCheck(ctx); err != nil {
			resp.Status = "unhealthy"
			errs = append(errs, err)
		} else if stats, err := h.resultsDB.GetStats(); err != nil {
			errs = append(errs, err)
		} else {
			resp.Database = stats
		}
	}
	if h.cache != nil && resp.Status == "healthy" {
		n, err := h.cache.Count(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		resp.CachedResults = n
	}

	if h.scheduler != nil {
		for name, entry := range h.scheduler.Jobs() {
			job := ScheduledJob{Name: name}
			if !entry.Next.IsZero() {
				next := entry.Next
				job.NextRun = &next
			}
			if !entry.Prev.IsZero() {
				prev := entry.Prev
				job.PrevRun = &prev
			}
			resp.ScheduledJobs = append(resp.ScheduledJobs, job)
		}
		sort.Slice(resp.ScheduledJobs, func(i, j int) bool {
			return resp.ScheduledJobs[i].Name < resp.ScheduledJobs[j].Name
		})
	}

	return resp, errors.Join(errs...)
}

// HandleSystemStatus returns system status
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response, err := h.GetSystemStatusSnapshot(r.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("System status collected with warnings")
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, response)
}

// HandleEngine returns the active engine calibration
// GET /api/system/engine
func (h *SystemHandlers) HandleEngine(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine)
}

// HandleTriggerCacheCleanup queues a result cache cleanup
// POST /api/jobs/cache-cleanup
func (h *SystemHandlers) HandleTriggerCacheCleanup(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": "Job queue not available",
		})
		return
	}

	h.log.Info().Msg("Manual result cache cleanup triggered")

	id, err := h.jobs.Submit(queue.JobTypeCacheCleanup, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to queue result cache cleanup")
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "queued",
		"job_id":  id,
		"message": queue.GetJobDescription(queue.JobTypeCacheCleanup),
	})
}

// getSystemStats calculates CPU and RAM usage percentages
// Uses a short interval (100ms) so the status endpoint stays responsive
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
