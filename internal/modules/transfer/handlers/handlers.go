// Package handlers provides HTTP handlers for the risk transfer functions.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stresscore/internal/domain"
	"github.com/aristath/stresscore/internal/modules/scenario"
	"github.com/aristath/stresscore/internal/modules/transfer"
)

// Handler handles risk transfer HTTP requests
type Handler struct {
	scenarios    scenario.NamedScenarios
	coefficients transfer.Coefficients
	log          zerolog.Logger
}

// NewHandler creates a new transfer handler
func NewHandler(named scenario.NamedScenarios, c transfer.Coefficients, log zerolog.Logger) *Handler {
	return &Handler{
		scenarios:    named,
		coefficients: c,
		log:          log.With().Str("handler", "transfer").Logger(),
	}
}

// FactorsInput selects a macro scenario by explicit factors or by severity.
// Factors win when both are given.
type FactorsInput struct {
	Factors  *scenario.MacroFactors `json:"factors,omitempty"`
	Severity scenario.Severity      `json:"severity,omitempty"`
}

func (h *Handler) resolve(in FactorsInput) (scenario.MacroFactors, error) {
	if in.Factors != nil {
		return *in.Factors, in.Factors.Validate()
	}
	if in.Severity == "" {
		return scenario.MacroFactors{}, domain.Invalid("factors", "factors or severity is required")
	}
	sev, err := scenario.ParseSeverity(string(in.Severity))
	if err != nil {
		return scenario.MacroFactors{}, err
	}
	prof, err := h.scenarios.Get(sev)
	if err != nil {
		return scenario.MacroFactors{}, err
	}
	return prof.Factors, nil
}

// CreditScoreRequest is the body of POST /api/transfer/credit-score.
type CreditScoreRequest struct {
	BaseScore float64 `json:"base_score"`
	FactorsInput
}

// HandleCreditScore handles POST /api/transfer/credit-score
func (h *Handler) HandleCreditScore(w http.ResponseWriter, r *http.Request) {
	var req CreditScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.Invalid("body", "invalid JSON: %v", err))
		return
	}

	f, err := h.resolve(req.FactorsInput)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := transfer.EvaluateCredit(req.BaseScore, f, h.coefficients)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// ForexResponse is the body returned by POST /api/transfer/forex-multiplier.
type ForexResponse struct {
	Factors          scenario.MacroFactors `json:"factors"`
	StressMultiplier float64               `json:"stress_multiplier"`
	// StressedVolatility is set when the request carried a volatility.
	StressedVolatility float64 `json:"stressed_volatility,omitempty"`
}

// ForexRequest is the body of POST /api/transfer/forex-multiplier.
type ForexRequest struct {
	Volatility float64 `json:"volatility,omitempty"`
	FactorsInput
}

// HandleForexMultiplier handles POST /api/transfer/forex-multiplier
func (h *Handler) HandleForexMultiplier(w http.ResponseWriter, r *http.Request) {
	var req ForexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.Invalid("body", "invalid JSON: %v", err))
		return
	}
	if req.Volatility < 0 {
		h.writeError(w, domain.Invalid("volatility", "must not be negative"))
		return
	}

	f, err := h.resolve(req.FactorsInput)
	if err != nil {
		h.writeError(w, err)
		return
	}

	m := transfer.StressMultiplier(f)
	h.writeJSON(w, http.StatusOK, ForexResponse{
		Factors:            f,
		StressMultiplier:   m,
		StressedVolatility: req.Volatility * m,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := map[string]interface{}{"error": err.Error()}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		status = http.StatusBadRequest
		body["field"] = ve.Field
	} else {
		h.log.Error().Err(err).Msg("Transfer request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		h.log.Error().Err(encErr).Msg("Failed to encode JSON error")
	}
}
