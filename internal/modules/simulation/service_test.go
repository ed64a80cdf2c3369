package simulation

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stresscore/internal/events"
	"github.com/aristath/stresscore/internal/modules/scenario"
	"github.com/aristath/stresscore/internal/queue"
	"github.com/aristath/stresscore/internal/resultcache"
	"github.com/aristath/stresscore/pkg/metrics"
)

const resultsSchema = `
CREATE TABLE simulation_results (
    cache_key  TEXT PRIMARY KEY,
    kind       TEXT NOT NULL,
    data       BLOB NOT NULL,
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);
`

func newTestCache(t *testing.T) *resultcache.Repository {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	_, err = db.Exec(resultsSchema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return resultcache.NewRepository(db)
}

func newTestEvents() (*events.Manager, *events.Bus) {
	log := zerolog.Nop()
	bus := events.NewBus(log)
	return events.NewManager(bus, log), bus
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Store(ctx context.Context, key, kind string, value interface{}, ttl time.Duration) error {
	return m.Called(ctx, key, kind, value, ttl).Error(0)
}

func (m *mockCache) GetIfFresh(ctx context.Context, key string, out interface{}) (bool, error) {
	args := m.Called(ctx, key, out)
	return args.Bool(0), args.Error(1)
}

func TestService_CreditCachesSeededRuns(t *testing.T) {
	cache := newTestCache(t)
	em, bus := newTestEvents()
	svc := NewService(newTestRunner(t, nil), cache, time.Hour, em, metrics.New(), zerolog.Nop())

	var completed []*events.SimulationCompletedData
	bus.Subscribe(events.SimulationCompleted, func(e *events.Event) {
		if data, ok := e.GetTypedData().(*events.SimulationCompletedData); ok {
			completed = append(completed, data)
		}
	})

	req := CreditRequest{Book: sampleCreditBook(), RunParams: RunParams{Severity: scenario.Severe, Seed: seedPtr(11)}}

	first, err := svc.Credit(context.Background(), req, nil)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.NotEmpty(t, first.CacheKey)

	second, err := svc.Credit(context.Background(), req, nil)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.CacheKey, second.CacheKey)

	require.NotNil(t, second.Result)
	assert.Equal(t, first.Result.Run, second.Result.Run)
	assert.Equal(t, first.Result.BaselineRWA, second.Result.BaselineRWA)
	assert.Equal(t, first.Result.MeanRiskWeight, second.Result.MeanRiskWeight)
	assert.Equal(t, first.Result.Tiers, second.Result.Tiers)
	assert.Equal(t, first.Result.Distribution.Bins, second.Result.Distribution.Bins)

	require.Len(t, completed, 2)
	assert.False(t, completed[0].Cached)
	assert.True(t, completed[1].Cached)
	assert.Equal(t, "severe", completed[1].Severity)
	assert.Equal(t, 4000, completed[1].Iterations)
}

func TestService_DifferentSeedMisses(t *testing.T) {
	svc := NewService(newTestRunner(t, nil), newTestCache(t), time.Hour, nil, nil, zerolog.Nop())

	a, err := svc.Forex(context.Background(), ForexRequest{Book: sampleForexBook(), RunParams: RunParams{Seed: seedPtr(1)}}, nil)
	require.NoError(t, err)
	b, err := svc.Forex(context.Background(), ForexRequest{Book: sampleForexBook(), RunParams: RunParams{Seed: seedPtr(2)}}, nil)
	require.NoError(t, err)

	assert.False(t, b.Cached)
	assert.NotEqual(t, a.CacheKey, b.CacheKey)
}

func TestService_UnseededRunsBypassCache(t *testing.T) {
	cache := new(mockCache)
	svc := NewService(newTestRunner(t, nil), cache, time.Hour, nil, nil, zerolog.Nop())

	out, err := svc.Credit(context.Background(), CreditRequest{Book: sampleCreditBook()}, nil)
	require.NoError(t, err)
	assert.False(t, out.Cached)
	assert.Empty(t, out.CacheKey)
	cache.AssertNotCalled(t, "GetIfFresh", mock.Anything, mock.Anything, mock.Anything)
	cache.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_CacheFailuresDoNotFailRuns(t *testing.T) {
	cache := new(mockCache)
	cache.On("GetIfFresh", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("disk gone"))
	cache.On("Store", mock.Anything, mock.Anything, "credit", mock.Anything, time.Hour).Return(errors.New("disk gone"))
	svc := NewService(newTestRunner(t, nil), cache, time.Hour, nil, metrics.New(), zerolog.Nop())

	out, err := svc.Credit(context.Background(), CreditRequest{Book: sampleCreditBook(), RunParams: RunParams{Seed: seedPtr(5)}}, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.False(t, out.Cached)
	cache.AssertExpectations(t)
}

func TestService_ValidationErrorsPropagate(t *testing.T) {
	svc := NewService(newTestRunner(t, nil), newTestCache(t), time.Hour, nil, nil, zerolog.Nop())
	_, err := svc.Credit(context.Background(), CreditRequest{RunParams: RunParams{Seed: seedPtr(5)}}, nil)
	require.Error(t, err)
}

func TestService_JobsRunThroughQueue(t *testing.T) {
	em, _ := newTestEvents()
	svc := NewService(newTestRunner(t, nil), newTestCache(t), time.Hour, em, nil, zerolog.Nop())

	m := queue.NewManager(queue.Config{Workers: 2}, em, nil, zerolog.Nop())
	svc.RegisterJobs(m)
	m.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Stop(ctx)
	})

	creditID, err := m.Submit(queue.JobTypeCreditSimulation, CreditRequest{Book: sampleCreditBook(), RunParams: RunParams{Seed: seedPtr(3)}})
	require.NoError(t, err)
	sweepID, err := m.Submit(queue.JobTypeSeveritySweep, SweepRequest{Forex: &ForexBook{Positions: sampleForexBook().Positions}, RunParams: RunParams{Iterations: 500, Seed: seedPtr(3)}})
	require.NoError(t, err)
	badID, err := m.Submit(queue.JobTypeForexSimulation, "not a request")
	require.NoError(t, err)

	wait := func(id string) queue.Snapshot {
		var snap queue.Snapshot
		require.Eventually(t, func() bool {
			var ok bool
			snap, ok = m.Get(id)
			return ok && snap.Status.Terminal()
		}, 10*time.Second, 10*time.Millisecond)
		return snap
	}

	credit := wait(creditID)
	require.Equal(t, queue.StatusCompleted, credit.Status, credit.Error)
	out, ok := credit.Result.(Outcome[CreditResult])
	require.True(t, ok)
	assert.NotNil(t, out.Result)
	require.NotNil(t, credit.Progress)
	assert.Equal(t, credit.Progress.Total, credit.Progress.Current)

	sweep := wait(sweepID)
	require.Equal(t, queue.StatusCompleted, sweep.Status, sweep.Error)
	sweepOut, ok := sweep.Result.(Outcome[SweepResult])
	require.True(t, ok)
	assert.Len(t, sweepOut.Result.Forex, 3)
	require.NotNil(t, sweep.Progress)
	assert.Equal(t, "severity_sweep", sweep.Progress.Phase)

	bad := wait(badID)
	assert.Equal(t, queue.StatusFailed, bad.Status)
	assert.Contains(t, bad.Error, "expected ForexRequest")
}
