package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stresscore/internal/modules/capital"
	"github.com/aristath/stresscore/internal/modules/scenario"
	"github.com/aristath/stresscore/internal/modules/transfer"
)

func setupRouter() *chi.Mux {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	h := NewHandler(
		scenario.DefaultNamedScenarios(),
		transfer.DefaultCoefficients(),
		capital.DefaultMinimums(),
		capital.DefaultWarningThreshold,
		logger,
	)
	router := chi.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func post(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorField(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	field, _ := body["field"].(string)
	return field
}

const referenceBaseline = `{"capital_ratio": 12.5, "rwa": 1000, "net_income": 100, "provisions": 20}`

func TestHandleStressTest(t *testing.T) {
	router := setupRouter()

	w := post(t, router, "/stress/test", `{"baseline": `+referenceBaseline+`, "factors": {"gdp_change": -3, "unemployment_change": 2, "house_price_change": -10, "interest_rate_change": 1}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data capital.StressResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, 92.5, resp.Data.Stressed.NetIncome, 1e-9)
	assert.InDelta(t, 17.6, resp.Data.Stressed.Provisions, 1e-9)
	assert.InDelta(t, 930.0, resp.Data.Stressed.RWA, 1e-9)
	assert.InDelta(t, 12.5+2.4/930, resp.Data.Stressed.CapitalRatio, 1e-9)
	assert.Equal(t, 12.5, resp.Data.Baseline.CapitalRatio)
}

func TestHandleStressTest_Errors(t *testing.T) {
	router := setupRouter()

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"invalid json", `{`, "body"},
		{"zero rwa", `{"baseline": {"capital_ratio": 12, "rwa": 0}, "severity": "severe"}`, "rwa"},
		{"no scenario", `{"baseline": ` + referenceBaseline + `}`, "factors"},
		{"unknown severity", `{"baseline": ` + referenceBaseline + `, "severity": "apocalyptic"}`, "severity"},
		{"house prices wipe out rwa", `{"baseline": ` + referenceBaseline + `, "factors": {"house_price_change": -200}}`, "house_price_change"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, router, "/stress/test", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, tt.field, errorField(t, w))
		})
	}
}

func TestHandleAdequacy(t *testing.T) {
	router := setupRouter()

	tests := []struct {
		name    string
		body    string
		status  capital.Status
		cet1Buf float64
	}{
		{
			name:    "default minimums",
			body:    `{"position": {"cet1": 120, "tier1": 140, "total_capital": 160, "rwa": 1000}}`,
			status:  capital.StatusAdequate,
			cet1Buf: 7.5,
		},
		{
			name:    "custom threshold flags a warning",
			body:    `{"position": {"cet1": 120, "tier1": 140, "total_capital": 160, "rwa": 1000}, "warning_threshold": 10}`,
			status:  capital.StatusWarning,
			cet1Buf: 7.5,
		},
		{
			name:    "custom minimums",
			body:    `{"position": {"cet1": 120, "tier1": 140, "total_capital": 160, "rwa": 1000}, "minimums": {"cet1_min": 13, "tier1_min": 6, "total_capital_min": 8}}`,
			status:  capital.StatusInadequate,
			cet1Buf: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, router, "/capital/adequacy", tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var resp struct {
				Data capital.AdequacyResult `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.InDelta(t, 12.0, resp.Data.Ratios.CET1, 1e-9)
			assert.InDelta(t, tt.cet1Buf, resp.Data.Buffers.CET1, 1e-9)
			assert.Equal(t, tt.status, resp.Data.Status)
			assert.Len(t, resp.Data.Recommendations, 3)
		})
	}
}

func TestHandleAdequacy_Errors(t *testing.T) {
	router := setupRouter()

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing position", `{}`, "rwa"},
		{"negative capital", `{"position": {"cet1": -1, "tier1": 1, "total_capital": 1, "rwa": 10}}`, "cet1"},
		{"negative threshold", `{"position": {"cet1": 1, "tier1": 1, "total_capital": 1, "rwa": 10}, "warning_threshold": -1}`, "warning_threshold"},
		{"minimum over 100", `{"position": {"cet1": 1, "tier1": 1, "total_capital": 1, "rwa": 10}, "minimums": {"cet1_min": 101}}`, "cet1_min"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, router, "/capital/adequacy", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, tt.field, errorField(t, w))
		})
	}
}

func TestHandlePlan(t *testing.T) {
	router := setupRouter()

	w := post(t, router, "/capital/plan", `{"position": {"cet1": 120, "tier1": 140, "total_capital": 160, "rwa": 1000}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data PlanResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, capital.StatusAdequate, resp.Data.Current.Status)
	assert.True(t, resp.Data.CurrentShortfall.IsZero(), "shortfall=%s", resp.Data.CurrentShortfall)
	require.Len(t, resp.Data.Plans, 3)

	bySeverity := map[scenario.Severity]capital.SeverityPlan{}
	for _, p := range resp.Data.Plans {
		bySeverity[p.Severity] = p
	}
	assert.InDelta(t, 1086.25, bySeverity[scenario.Moderate].StressedRWA, 1e-9)
	assert.InDelta(t, 1230.0, bySeverity[scenario.Severe].StressedRWA, 1e-9)

	extreme := bySeverity[scenario.Extreme]
	assert.InDelta(t, 1540.0, extreme.StressedRWA, 1e-9)
	assert.True(t, extreme.Shortfall.Equal(decimal.RequireFromString("1.7")), "shortfall=%s", extreme.Shortfall)
}
