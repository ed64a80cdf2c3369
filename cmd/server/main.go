// Package main is the entry point for the stress testing engine.
//
// The server exposes the scenario generator, the risk transfer functions,
// the capital aggregator and the Monte Carlo pipelines over HTTP, runs long
// simulations on a bounded job queue and keeps seeded results in a SQLite
// result cache that a cron job expires.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/stresscore/internal/config"
	"github.com/aristath/stresscore/internal/di"
	"github.com/aristath/stresscore/internal/server"
	"github.com/aristath/stresscore/pkg/logger"
)

// statusInterval is how often the status monitor samples system health.
const statusInterval = time.Minute

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("workers", cfg.Workers).
		Msg("Starting stress engine")

	// Wire all dependencies: result cache database, engine calibration,
	// simulation service, job queue and scheduler
	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	container.QueueManager.Start()
	log.Info().Int("workers", cfg.Workers).Int("capacity", cfg.QueueSize).Msg("Job queue started")

	container.Scheduler.Start()

	srv := server.New(server.Config{
		Log:            log,
		Port:           cfg.Port,
		DevMode:        cfg.DevMode,
		Container:      container,
		Jobs:           jobs,
		StatusInterval: statusInterval,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop accepting requests before draining the queue so no new jobs arrive
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if err := container.QueueManager.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Job queue did not drain before deadline")
	} else {
		log.Info().Msg("Job queue stopped")
	}

	container.Scheduler.Stop()

	log.Info().Msg("Server stopped")
}
