package resultcache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stresscore/internal/events"
)

// CleanupJob removes expired simulation results.
// It is scheduled hourly.
type CleanupJob struct {
	repo   *Repository
	events *events.Manager
	log    zerolog.Logger
}

// NewCleanupJob creates a new result cache cleanup job. em may be nil.
func NewCleanupJob(repo *Repository, em *events.Manager, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo:   repo,
		events: em,
		log:    log.With().Str("job", "result_cache_cleanup").Logger(),
	}
}

// Run executes the cleanup job.
func (j *CleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := j.repo.DeleteExpired(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired simulation results")
		return err
	}

	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Cleaned up expired simulation results")
	}
	if j.events != nil {
		j.events.EmitTyped(events.CacheCleaned, "resultcache", &events.CacheCleanedData{Removed: deleted})
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "result_cache_cleanup"
}
