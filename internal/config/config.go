// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir    string // Base directory for the result cache database (always absolute)
	LogLevel   string
	Port       int
	DevMode    bool
	Workers    int           // Async simulation workers
	QueueSize  int           // Pending job capacity
	ResultTTL  time.Duration // How long cached simulation results stay fresh
	StressPath string        // Optional YAML file overriding engine defaults
	// CleanupSchedule is the cron spec for the result cache cleanup job.
	CleanupSchedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("STRESS_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		Port:            getEnvAsInt("GO_PORT", 8002),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Workers:         getEnvAsInt("STRESS_WORKERS", 2),
		QueueSize:       getEnvAsInt("STRESS_QUEUE_SIZE", 64),
		ResultTTL:       time.Duration(getEnvAsInt("STRESS_RESULT_TTL_MINUTES", 60)) * time.Minute,
		StressPath:      getEnv("STRESS_CONFIG_PATH", ""),
		CleanupSchedule: getEnv("STRESS_CLEANUP_SCHEDULE", "@hourly"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ResultsDBPath is the sqlite file backing the result cache.
func (c *Config) ResultsDBPath() string {
	return filepath.Join(c.DataDir, "results.db")
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("GO_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("STRESS_WORKERS must be positive, got %d", c.Workers)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("STRESS_QUEUE_SIZE must be positive, got %d", c.QueueSize)
	}
	if c.ResultTTL <= 0 {
		return fmt.Errorf("STRESS_RESULT_TTL_MINUTES must be positive, got %s", c.ResultTTL)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
