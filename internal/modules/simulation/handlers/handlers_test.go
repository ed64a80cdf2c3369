package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stresscore/internal/modules/simulation"
	"github.com/aristath/stresscore/internal/queue"
	"github.com/aristath/stresscore/pkg/metrics"
)

const creditBody = `{"book": {"loans": [
	{"id": "mortgage-1", "exposure": 250000, "credit_score": 720},
	{"id": "card-1", "exposure": 20000, "credit_score": 590}
]}, "severity": "severe", "iterations": 2000, "seed": 7}`

const forexBody = `{"book": {"positions": [
	{"pair": "EURUSD", "exposure": 1000000, "volatility": 0.08},
	{"pair": "USDJPY", "exposure": -400000, "volatility": 0.1}
]}, "iterations": 2000, "seed": 7}`

func newService(t *testing.T) *simulation.Service {
	t.Helper()
	engine := simulation.DefaultEngine()
	engine.Settings.Iterations = 2000
	engine.Settings.ChunkSize = 500
	prepared, err := engine.Prepare()
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	runner := simulation.NewRunner(prepared, metrics.New(), log)
	return simulation.NewService(runner, nil, time.Hour, nil, nil, log)
}

func setupRouter(t *testing.T, withJobs bool) *chi.Mux {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	svc := newService(t)

	var jobs *queue.Manager
	if withJobs {
		jobs = queue.NewManager(queue.Config{Workers: 1, Capacity: 4}, nil, nil, log)
		svc.RegisterJobs(jobs)
		jobs.Start()
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = jobs.Stop(ctx)
		})
	}

	h := NewHandler(svc, jobs, log)
	router := chi.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleCredit(t *testing.T) {
	router := setupRouter(t, false)

	w := do(t, router, http.MethodPost, "/simulations/credit", creditBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data simulation.Outcome[simulation.CreditResult] `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.Result)
	assert.False(t, resp.Data.Cached)
	assert.Equal(t, 2000, resp.Data.Result.Run.Iterations)
	assert.Equal(t, uint64(7), resp.Data.Result.Run.Seed)
	assert.Len(t, resp.Data.Result.Tiers, 3)
	assert.InDelta(t, 1.0, resp.Data.Result.Distribution.TotalFrequency(), 1e-9)
}

func TestHandleForex_SameSeedSameAnswer(t *testing.T) {
	router := setupRouter(t, false)

	decode := func(w *httptest.ResponseRecorder) simulation.ForexResult {
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp struct {
			Data simulation.Outcome[simulation.ForexResult] `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Data.Result)
		return *resp.Data.Result
	}

	a := decode(do(t, router, http.MethodPost, "/simulations/forex", forexBody))
	b := decode(do(t, router, http.MethodPost, "/simulations/forex", forexBody))
	assert.Equal(t, a.HistoricalVaR, b.HistoricalVaR)
	assert.Equal(t, a.ExpectedShortfall, b.ExpectedShortfall)
	assert.Greater(t, a.ScenarioMultiplier, 1.0)
}

func TestHandleSweep(t *testing.T) {
	router := setupRouter(t, false)

	w := do(t, router, http.MethodPost, "/simulations/sweep", `{"forex": {"positions": [{"pair": "EURUSD", "exposure": 1000, "volatility": 0.1}]}, "iterations": 500, "seed": 1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data simulation.Outcome[simulation.SweepResult] `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.Result)
	assert.Len(t, resp.Data.Result.Forex, 3)
	assert.Empty(t, resp.Data.Result.Credit)
}

func TestSynchronousErrors(t *testing.T) {
	router := setupRouter(t, false)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"invalid json", "/simulations/credit", `{"book":`, http.StatusBadRequest},
		{"empty book", "/simulations/credit", `{"book": {"loans": []}}`, http.StatusBadRequest},
		{"score out of range", "/simulations/credit", `{"book": {"loans": [{"id": "x", "exposure": 1, "credit_score": 900}]}}`, http.StatusBadRequest},
		{"unknown strategy", "/simulations/forex", `{"book": {"positions": [{"pair": "EURUSD", "exposure": 1, "volatility": 0.1}]}, "strategy": "copula"}`, http.StatusBadRequest},
		{"sweep without books", "/simulations/sweep", `{}`, http.StatusBadRequest},
		{"body too large", "/simulations/forex", `{"pad": "` + strings.Repeat("x", maxBodyBytes) + `"}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestJobs_SubmitAndPoll(t *testing.T) {
	router := setupRouter(t, true)

	w := do(t, router, http.MethodPost, "/simulations/jobs", `{"kind": "credit", "request": `+creditBody+`}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var submitted struct {
		Data SubmitJobResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))
	require.NotEmpty(t, submitted.Data.JobID)
	assert.Equal(t, queue.JobTypeCreditSimulation, submitted.Data.Type)
	assert.Equal(t, "/api/simulations/jobs/"+submitted.Data.JobID, w.Header().Get("Location"))

	var snap struct {
		Data struct {
			Status queue.Status                                `json:"status"`
			Error  string                                      `json:"error"`
			Result simulation.Outcome[simulation.CreditResult] `json:"result"`
		} `json:"data"`
	}
	require.Eventually(t, func() bool {
		w := do(t, router, http.MethodGet, "/simulations/jobs/"+submitted.Data.JobID, "")
		if w.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
			return false
		}
		return snap.Data.Status.Terminal()
	}, 10*time.Second, 20*time.Millisecond)

	require.Equal(t, queue.StatusCompleted, snap.Data.Status, snap.Data.Error)
	require.NotNil(t, snap.Data.Result.Result)
	assert.Equal(t, 2000, snap.Data.Result.Result.Run.Iterations)
}

func TestJobs_FailedValidationIsReportedOnTheJob(t *testing.T) {
	router := setupRouter(t, true)

	w := do(t, router, http.MethodPost, "/simulations/jobs", `{"kind": "forex", "request": {"book": {"positions": []}}}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var submitted struct {
		Data SubmitJobResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))

	var snap struct {
		Data queue.Snapshot `json:"data"`
	}
	require.Eventually(t, func() bool {
		w := do(t, router, http.MethodGet, "/simulations/jobs/"+submitted.Data.JobID, "")
		return json.Unmarshal(w.Body.Bytes(), &snap) == nil && snap.Data.Status.Terminal()
	}, 10*time.Second, 20*time.Millisecond)

	assert.Equal(t, queue.StatusFailed, snap.Data.Status)
	assert.NotEmpty(t, snap.Data.Error)
}

func TestJobs_Errors(t *testing.T) {
	router := setupRouter(t, true)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown kind", http.MethodPost, "/simulations/jobs", `{"kind": "equity", "request": {}}`, http.StatusBadRequest},
		{"missing request", http.MethodPost, "/simulations/jobs", `{"kind": "credit"}`, http.StatusBadRequest},
		{"malformed request", http.MethodPost, "/simulations/jobs", `{"kind": "credit", "request": {"book": 5}}`, http.StatusBadRequest},
		{"unknown job", http.MethodGet, "/simulations/jobs/does-not-exist", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestJobs_Disabled(t *testing.T) {
	router := setupRouter(t, false)

	w := do(t, router, http.MethodPost, "/simulations/jobs", `{"kind": "credit", "request": {}}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, router, http.MethodGet, "/simulations/jobs/abc", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSyncRunsStoppedByContext(t *testing.T) {
	router := setupRouter(t, false)

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name   string
		ctx    context.Context
		status int
	}{
		{"deadline exceeded", expired, http.StatusGatewayTimeout},
		{"client cancelled", cancelled, http.StatusRequestTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/simulations/forex", bytes.NewBufferString(forexBody)).WithContext(tt.ctx)
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}
