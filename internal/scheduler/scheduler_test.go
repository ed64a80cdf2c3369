package scheduler

import (
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stresscore/internal/database"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	fails bool
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	if j.fails {
		return errors.New("failed")
	}
	return nil
}

func TestScheduler_RunsRegisteredJob(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "tick"}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 20*time.Millisecond)

	entries := s.Jobs()
	require.Contains(t, entries, "tick")
	assert.False(t, entries["tick"].Next.IsZero())
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	assert.Error(t, s.AddJob("not a schedule", &countingJob{name: "x"}))
	assert.Empty(t, s.Jobs())
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "now", fails: true}
	assert.Error(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.runs.Load())

	// A failing job is logged and does not panic the scheduler.
	assert.NotPanics(t, func() { s.execute(job) })
}

func TestWALCheckpointJob(t *testing.T) {
	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "r.db"), Name: "results", Profile: database.ProfileCache})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate())

	job := NewWALCheckpointJob(zerolog.Nop(), db, nil)
	assert.Equal(t, "wal_checkpoint", job.Name())
	assert.NoError(t, job.Run())
}
