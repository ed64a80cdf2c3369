// Package handlers provides HTTP handlers for the named macro scenarios and
// the correlated scenario generator.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stresscore/internal/domain"
	"github.com/aristath/stresscore/internal/modules/montecarlo"
	"github.com/aristath/stresscore/internal/modules/scenario"
)

// maxSampleIterations bounds synchronous generator calls.
const maxSampleIterations = 100000

// Handler handles scenario HTTP requests
type Handler struct {
	scenarios   scenario.NamedScenarios
	correlation scenario.CorrelationMatrix
	strategy    montecarlo.Strategy
	log         zerolog.Logger
}

// NewHandler creates a new scenario handler
func NewHandler(named scenario.NamedScenarios, corr scenario.CorrelationMatrix, strategy montecarlo.Strategy, log zerolog.Logger) *Handler {
	return &Handler{
		scenarios:   named,
		correlation: corr,
		strategy:    strategy,
		log:         log.With().Str("handler", "scenario").Logger(),
	}
}

// ScenariosResponse lists the configured scenarios and the factor correlation.
type ScenariosResponse struct {
	Factors       [scenario.Dimensions]string `json:"factors"`
	Scenarios     []scenario.SeverityProfile  `json:"scenarios"`
	Correlation   [][]float64                 `json:"correlation"`
	MinEigenvalue float64                     `json:"min_eigenvalue"`
}

// HandleGetScenarios handles GET /api/scenarios
func (h *Handler) HandleGetScenarios(w http.ResponseWriter, r *http.Request) {
	minEig, err := h.correlation.MinEigenvalue()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to decompose correlation matrix")
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, ScenariosResponse{
		Factors:       scenario.FactorNames,
		Scenarios:     h.scenarios.Ordered(),
		Correlation:   h.correlation.Rows(),
		MinEigenvalue: minEig,
	})
}

// SampleRequest asks the generator for a sample summary.
type SampleRequest struct {
	Severity   scenario.Severity      `json:"severity,omitempty"`
	Means      *scenario.MacroFactors `json:"means,omitempty"`
	Iterations int                    `json:"iterations"`
	Strategy   string                 `json:"strategy,omitempty"`
	Seed       *uint64                `json:"seed,omitempty"`
	// Correlation overrides the configured matrix for this call.
	Correlation [][]float64 `json:"correlation,omitempty"`
}

// SampleResponse summarises a generated sample.
type SampleResponse struct {
	Means      scenario.MacroFactors   `json:"means"`
	Iterations int                     `json:"iterations"`
	Strategy   montecarlo.Strategy     `json:"strategy"`
	Stats      montecarlo.SampleStats  `json:"stats"`
	Head       []scenario.MacroFactors `json:"head"`
}

// HandleSample handles POST /api/scenarios/sample
func (h *Handler) HandleSample(w http.ResponseWriter, r *http.Request) {
	var req SampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.Invalid("body", "invalid JSON: %v", err))
		return
	}
	if req.Iterations > maxSampleIterations {
		h.writeError(w, domain.Invalid("iterations", "must be at most %d", maxSampleIterations))
		return
	}

	means := scenario.MacroFactors{}
	switch {
	case req.Means != nil:
		means = *req.Means
	case req.Severity != "":
		sev, err := scenario.ParseSeverity(string(req.Severity))
		if err != nil {
			h.writeError(w, err)
			return
		}
		prof, err := h.scenarios.Get(sev)
		if err != nil {
			h.writeError(w, err)
			return
		}
		means = prof.Factors
	}

	strategy := h.strategy
	if req.Strategy != "" {
		s, err := montecarlo.ParseStrategy(req.Strategy)
		if err != nil {
			h.writeError(w, err)
			return
		}
		strategy = s
	}

	corr := h.correlation
	if req.Correlation != nil {
		c, err := scenario.FromRows(req.Correlation)
		if err != nil {
			h.writeError(w, err)
			return
		}
		corr = c
	}

	sample, err := montecarlo.GenerateCorrelatedRandoms(means.Vector(), corr, req.Iterations, montecarlo.Options{Strategy: strategy, Seed: req.Seed})
	if err != nil {
		h.writeError(w, err)
		return
	}

	head := sample
	if len(head) > 10 {
		head = head[:10]
	}
	h.writeJSON(w, http.StatusOK, SampleResponse{
		Means:      means,
		Iterations: len(sample),
		Strategy:   strategy,
		Stats:      sample.Stats(),
		Head:       head.Factors(),
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
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		h.log.Error().Err(encErr).Msg("Failed to encode JSON error")
	}
}
