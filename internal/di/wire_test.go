package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stresscore/internal/config"
	"github.com/aristath/stresscore/internal/events"
	"github.com/aristath/stresscore/internal/modules/scenario"
	"github.com/aristath/stresscore/internal/queue"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:         t.TempDir(),
		Port:            8002,
		LogLevel:        "info",
		Workers:         1,
		QueueSize:       4,
		ResultTTL:       time.Hour,
		CleanupSchedule: "@hourly",
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	assert.NotNil(t, container.ResultsDB)
	assert.NotNil(t, container.EventBus)
	assert.NotNil(t, container.EventManager)
	assert.NotNil(t, container.Metrics)
	assert.NotNil(t, container.ResultCache)
	assert.NotNil(t, container.SimulationRunner)
	assert.NotNil(t, container.SimulationService)
	assert.NotNil(t, container.QueueManager)
	assert.NotNil(t, container.Scheduler)

	assert.Equal(t, "raw_correlation", container.Engine.Settings.Strategy)
	assert.Len(t, container.Engine.Scenarios, 3)

	require.NotNil(t, jobs)
	assert.Equal(t, "result_cache_cleanup", jobs.CacheCleanup.Name())
	assert.Equal(t, "wal_checkpoint", jobs.WALCheckpoint.Name())

	scheduled := container.Scheduler.Jobs()
	assert.Contains(t, scheduled, "result_cache_cleanup")
	assert.Contains(t, scheduled, "wal_checkpoint")
}

func TestWire_StressConfigOverrides(t *testing.T) {
	cfg := testConfig(t)
	cfg.StressPath = filepath.Join(cfg.DataDir, "stress.yaml")
	require.NoError(t, os.WriteFile(cfg.StressPath, []byte(`
engine:
  iterations: 2000
  seed: 42
scenarios:
  severe:
    factors: {gdp_change: -5, unemployment_change: 4, house_price_change: -30, interest_rate_change: 2}
`), 0o644))

	container, _, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	assert.Equal(t, 2000, container.Engine.Settings.Iterations)
	require.NotNil(t, container.Engine.Settings.Seed)
	assert.Equal(t, uint64(42), *container.Engine.Settings.Seed)
	assert.Equal(t, -5.0, container.Engine.Scenarios[scenario.Severe].Factors.GDPChange)
}

func TestWire_BadStressConfigFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.StressPath = filepath.Join(cfg.DataDir, "missing.yaml")

	container, jobs, err := Wire(cfg, zerolog.Nop())
	assert.Error(t, err)
	assert.Nil(t, container)
	assert.Nil(t, jobs)
}

func TestWire_CacheCleanupRunsThroughQueue(t *testing.T) {
	cfg := testConfig(t)

	container, _, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	cleaned := make(chan int64, 1)
	container.EventBus.Subscribe(events.CacheCleaned, func(e *events.Event) {
		if data, ok := e.GetTypedData().(*events.CacheCleanedData); ok {
			cleaned <- data.Removed
		}
	})

	container.QueueManager.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = container.QueueManager.Stop(ctx)
	})

	id, err := container.QueueManager.Submit(queue.JobTypeCacheCleanup, nil)
	require.NoError(t, err)

	select {
	case removed := <-cleaned:
		assert.Equal(t, int64(0), removed)
	case <-time.After(5 * time.Second):
		t.Fatal("cache cleanup did not run")
	}

	require.Eventually(t, func() bool {
		snap, ok := container.QueueManager.Get(id)
		return ok && snap.Status == queue.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
}
