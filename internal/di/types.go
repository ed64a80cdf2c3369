/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"github.com/aristath/stresscore/internal/config"
	"github.com/aristath/stresscore/internal/database"
	"github.com/aristath/stresscore/internal/events"
	"github.com/aristath/stresscore/internal/modules/simulation"
	"github.com/aristath/stresscore/internal/queue"
	"github.com/aristath/stresscore/internal/resultcache"
	"github.com/aristath/stresscore/internal/scheduler"
	"github.com/aristath/stresscore/pkg/metrics"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: results.db, the cache of seeded simulation results
 * - Engine: calibration merged from defaults and the optional stress config file
 * - Services: simulation runner and the cache-first simulation service
 * - Background: job queue for async simulations, cron scheduler for maintenance
 */
type Container struct {
	// Databases
	ResultsDB *database.DB

	// Cross-cutting
	EventBus     *events.Bus
	EventManager *events.Manager
	Metrics      *metrics.Recorder

	// Repositories
	ResultCache *resultcache.Repository

	// Calibration
	StressConfig *config.StressConfig
	Engine       simulation.Engine

	// Services
	SimulationRunner  *simulation.Runner
	SimulationService *simulation.Service

	// Background processing
	QueueManager *queue.Manager
	Scheduler    *scheduler.Scheduler
}

// JobInstances holds the scheduled maintenance jobs so they can be triggered manually.
type JobInstances struct {
	CacheCleanup  scheduler.Job
	WALCheckpoint scheduler.Job
}

// Close releases the databases held by the container.
func (c *Container) Close() error {
	if c == nil || c.ResultsDB == nil {
		return nil
	}
	return c.ResultsDB.Close()
}
