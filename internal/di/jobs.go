// Package di provides dependency injection for background jobs.
package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/stresscore/internal/config"
	"github.com/aristath/stresscore/internal/queue"
	"github.com/aristath/stresscore/internal/resultcache"
	"github.com/aristath/stresscore/internal/scheduler"
)

// walCheckpointSchedule runs the WAL checkpoint every 30 minutes (cron with seconds).
const walCheckpointSchedule = "0 */30 * * * *"

// RegisterJobs binds queue handlers and schedules the maintenance jobs.
// Nothing is started here; the caller starts the queue and the scheduler.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{}

	// ==========================================
	// Queue handlers: async simulations
	// ==========================================
	container.SimulationService.RegisterJobs(container.QueueManager)

	// ==========================================
	// Result cache cleanup: cron and on-demand via the queue
	// ==========================================
	cacheCleanup := resultcache.NewCleanupJob(container.ResultCache, container.EventManager, log)
	instances.CacheCleanup = cacheCleanup
	container.QueueManager.Register(queue.JobTypeCacheCleanup, queue.HandlerFunc(
		func(ctx context.Context, _ interface{}, progress *queue.ProgressReporter) (interface{}, error) {
			progress.ReportUnthrottled(0, 1, "Deleting expired results")
			if err := cacheCleanup.Run(); err != nil {
				return nil, err
			}
			progress.Report(1, 1, "Expired results deleted")
			return nil, nil
		},
	))

	// ==========================================
	// WAL checkpoint
	// ==========================================
	walCheckpoint := scheduler.NewWALCheckpointJob(log, container.ResultsDB)
	instances.WALCheckpoint = walCheckpoint

	// ==========================================
	// Cron schedule
	// ==========================================
	container.Scheduler = scheduler.New(log)
	if err := container.Scheduler.AddJob(cfg.CleanupSchedule, cacheCleanup); err != nil {
		return nil, fmt.Errorf("failed to schedule %s: %w", cacheCleanup.Name(), err)
	}
	if err := container.Scheduler.AddJob(walCheckpointSchedule, walCheckpoint); err != nil {
		return nil, fmt.Errorf("failed to schedule %s: %w", walCheckpoint.Name(), err)
	}

	log.Info().Int("scheduled", len(container.Scheduler.Jobs())).Msg("Jobs registered")

	return instances, nil
}
