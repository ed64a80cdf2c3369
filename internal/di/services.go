// Package di provides dependency injection for services.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/stresscore/internal/config"
	"github.com/aristath/stresscore/internal/events"
	"github.com/aristath/stresscore/internal/modules/simulation"
	"github.com/aristath/stresscore/internal/queue"
	"github.com/aristath/stresscore/internal/resultcache"
	"github.com/aristath/stresscore/pkg/metrics"
)

// InitializeServices builds the engine, the simulation stack and the job
// queue on top of an initialized container
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// Event system
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	container.Metrics = metrics.New()

	container.ResultCache = resultcache.NewRepository(container.ResultsDB.Conn())

	// Calibration: defaults, optionally overridden by the stress config file
	stressCfg, err := config.LoadStressConfig(cfg.StressPath)
	if err != nil {
		return err
	}
	engine, err := stressCfg.BuildEngine()
	if err != nil {
		return fmt.Errorf("failed to prepare simulation engine: %w", err)
	}
	container.StressConfig = stressCfg
	container.Engine = engine

	log.Info().
		Str("strategy", engine.Settings.Strategy).
		Int("iterations", engine.Settings.Iterations).
		Bool("seeded", engine.Settings.Seed != nil).
		Str("stress_config", cfg.StressPath).
		Msg("Simulation engine prepared")

	container.SimulationRunner = simulation.NewRunner(engine, container.Metrics, log)
	container.SimulationService = simulation.NewService(
		container.SimulationRunner,
		container.ResultCache,
		cfg.ResultTTL,
		container.EventManager,
		container.Metrics,
		log,
	)

	container.QueueManager = queue.NewManager(queue.Config{
		Workers:  cfg.Workers,
		Capacity: cfg.QueueSize,
	}, container.EventManager, container.Metrics, log)

	return nil
}
