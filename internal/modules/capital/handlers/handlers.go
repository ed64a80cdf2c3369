// Package handlers provides HTTP handlers for stress testing and capital adequacy.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stresscore/internal/domain"
	"github.com/aristath/stresscore/internal/modules/capital"
	"github.com/aristath/stresscore/internal/modules/scenario"
	"github.com/aristath/stresscore/internal/modules/transfer"
)

// Handler handles stress test and capital adequacy HTTP requests
type Handler struct {
	scenarios    scenario.NamedScenarios
	coefficients transfer.Coefficients
	minimums     capital.Minimums
	threshold    float64
	validate     *validator.Validate
	log          zerolog.Logger
}

// NewHandler creates a new capital handler. minimums and threshold are the
// defaults applied when a request does not carry its own.
func NewHandler(
	named scenario.NamedScenarios,
	c transfer.Coefficients,
	minimums capital.Minimums,
	threshold float64,
	log zerolog.Logger,
) *Handler {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{
		scenarios:    named,
		coefficients: c,
		minimums:     minimums,
		threshold:    threshold,
		validate:     v,
		log:          log.With().Str("handler", "capital").Logger(),
	}
}

// StressTestRequest is the body of POST /api/stress/test.
type StressTestRequest struct {
	Baseline capital.StressBaseline `json:"baseline"`
	Factors  *scenario.MacroFactors `json:"factors,omitempty"`
	Severity scenario.Severity      `json:"severity,omitempty"`
}

// HandleStressTest handles POST /api/stress/test
func (h *Handler) HandleStressTest(w http.ResponseWriter, r *http.Request) {
	var req StressTestRequest
	if !h.decode(w, r, &req) {
		return
	}

	f, err := h.resolve(req.Factors, req.Severity)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := capital.RunStressTest(req.Baseline, f, h.coefficients)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// AdequacyRequest is the body of POST /api/capital/adequacy and
// POST /api/capital/plan.
type AdequacyRequest struct {
	Position         capital.Position  `json:"position"`
	Minimums         *capital.Minimums `json:"minimums,omitempty"`
	WarningThreshold *float64          `json:"warning_threshold,omitempty" validate:"omitempty,gte=0"`
}

func (h *Handler) limits(req AdequacyRequest) (capital.Minimums, float64) {
	m := h.minimums
	if req.Minimums != nil {
		m = *req.Minimums
	}
	threshold := h.threshold
	if req.WarningThreshold != nil {
		threshold = *req.WarningThreshold
	}
	return m, threshold
}

// HandleAdequacy handles POST /api/capital/adequacy
func (h *Handler) HandleAdequacy(w http.ResponseWriter, r *http.Request) {
	var req AdequacyRequest
	if !h.decode(w, r, &req) {
		return
	}

	m, threshold := h.limits(req)
	result, err := capital.Analyze(req.Position, m, threshold)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// PlanResponse is the body returned by POST /api/capital/plan.
type PlanResponse struct {
	Current          capital.AdequacyResult `json:"current"`
	CurrentShortfall decimal.Decimal        `json:"current_shortfall"`
	Plans            []capital.SeverityPlan `json:"plans"`
}

// HandlePlan handles POST /api/capital/plan
func (h *Handler) HandlePlan(w http.ResponseWriter, r *http.Request) {
	var req AdequacyRequest
	if !h.decode(w, r, &req) {
		return
	}

	m, threshold := h.limits(req)
	current, err := capital.Analyze(req.Position, m, threshold)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, PlanResponse{
		Current:          current,
		CurrentShortfall: capital.Shortfall(req.Position, m, threshold),
		Plans:            capital.PlanSeverities(req.Position, m, h.scenarios, h.coefficients, threshold),
	})
}

func (h *Handler) resolve(factors *scenario.MacroFactors, severity scenario.Severity) (scenario.MacroFactors, error) {
	if factors != nil {
		return *factors, factors.Validate()
	}
	if severity == "" {
		return scenario.MacroFactors{}, domain.Invalid("factors", "factors or severity is required")
	}
	sev, err := scenario.ParseSeverity(string(severity))
	if err != nil {
		return scenario.MacroFactors{}, err
	}
	prof, err := h.scenarios.Get(sev)
	if err != nil {
		return scenario.MacroFactors{}, err
	}
	return prof.Factors, nil
}

// decode reads and validates a JSON body, writing the error response itself
// when it returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, domain.Invalid("body", "invalid JSON: %v", err))
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			h.writeError(w, domain.Invalid(fe.Field(), "failed %q check", fe.Tag()))
			return false
		}
		h.writeError(w, domain.Invalid("body", "%v", err))
		return false
	}
	return true
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
		h.log.Error().Err(err).Msg("Capital request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		h.log.Error().Err(encErr).Msg("Failed to encode JSON error")
	}
}
