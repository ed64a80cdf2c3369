// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/stresscore/internal/config"
	"github.com/aristath/stresscore/internal/database"
)

// InitializeDatabases opens results.db and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// results.db - Seeded simulation results, safe to lose
	resultsDB, err := database.New(database.Config{
		Path:    cfg.ResultsDBPath(),
		Profile: database.ProfileCache,
		Name:    "results",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize results database: %w", err)
	}
	container.ResultsDB = resultsDB

	if err := resultsDB.Migrate(); err != nil {
		resultsDB.Close()
		return nil, fmt.Errorf("failed to apply schema to %s: %w", resultsDB.Name(), err)
	}

	log.Info().Str("path", resultsDB.Path()).Msg("Results database initialized and schema applied")

	return container, nil
}
