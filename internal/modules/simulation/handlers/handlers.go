// Package handlers provides HTTP handlers for Monte Carlo simulations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/stresscore/internal/domain"
	"github.com/aristath/stresscore/internal/modules/simulation"
	"github.com/aristath/stresscore/internal/queue"
)

// maxBodyBytes caps request bodies; books with tens of thousands of loans fit.
const maxBodyBytes = 8 << 20

// Handler handles simulation HTTP requests
type Handler struct {
	service *simulation.Service
	jobs    *queue.Manager
	log     zerolog.Logger
}

// NewHandler creates a new simulation handler. jobs may be nil, in which case
// the asynchronous endpoints answer 503.
func NewHandler(service *simulation.Service, jobs *queue.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		jobs:    jobs,
		log:     log.With().Str("handler", "simulation").Logger(),
	}
}

// HandleCredit handles POST /api/simulations/credit
func (h *Handler) HandleCredit(w http.ResponseWriter, r *http.Request) {
	var req simulation.CreditRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.service.Credit(r.Context(), req, nil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// HandleForex handles POST /api/simulations/forex
func (h *Handler) HandleForex(w http.ResponseWriter, r *http.Request) {
	var req simulation.ForexRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.service.Forex(r.Context(), req, nil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// HandleSweep handles POST /api/simulations/sweep
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	var req simulation.SweepRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.service.Sweep(r.Context(), req, nil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// SubmitJobRequest is the body of POST /api/simulations/jobs.
type SubmitJobRequest struct {
	Kind    simulation.Kind `json:"kind"`
	Request json.RawMessage `json:"request"`
}

// SubmitJobResponse is returned with 202 Accepted.
type SubmitJobResponse struct {
	JobID  string        `json:"job_id"`
	Type   queue.JobType `json:"type"`
	Status queue.Status  `json:"status"`
}

// HandleSubmitJob handles POST /api/simulations/jobs
func (h *Handler) HandleSubmitJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		h.writeStatus(w, http.StatusServiceUnavailable, "background jobs are disabled")
		return
	}

	var req SubmitJobRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.Request) == 0 {
		h.writeError(w, domain.Invalid("request", "request is required"))
		return
	}

	var (
		jobType queue.JobType
		payload interface{}
		err     error
	)
	switch req.Kind {
	case simulation.KindCredit:
		jobType = queue.JobTypeCreditSimulation
		var p simulation.CreditRequest
		err = json.Unmarshal(req.Request, &p)
		payload = p
	case simulation.KindForex:
		jobType = queue.JobTypeForexSimulation
		var p simulation.ForexRequest
		err = json.Unmarshal(req.Request, &p)
		payload = p
	case simulation.KindSweep:
		jobType = queue.JobTypeSeveritySweep
		var p simulation.SweepRequest
		err = json.Unmarshal(req.Request, &p)
		payload = p
	default:
		h.writeError(w, domain.Invalid("kind", "unknown simulation kind %q", req.Kind))
		return
	}
	if err != nil {
		h.writeError(w, domain.Invalid("request", "invalid JSON: %v", err))
		return
	}

	id, err := h.jobs.Submit(jobType, payload)
	switch {
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrStopped):
		h.writeStatus(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		h.writeError(w, err)
		return
	}

	h.log.Debug().Str("job_id", id).Str("kind", string(req.Kind)).Msg("Simulation job submitted")
	w.Header().Set("Location", "/api/simulations/jobs/"+id)
	h.writeJSON(w, http.StatusAccepted, SubmitJobResponse{JobID: id, Type: jobType, Status: queue.StatusQueued})
}

// HandleGetJob handles GET /api/simulations/jobs/{id}
func (h *Handler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		h.writeStatus(w, http.StatusServiceUnavailable, "background jobs are disabled")
		return
	}

	id := chi.URLParam(r, "id")
	snap, ok := h.jobs.Get(id)
	if !ok {
		h.writeStatus(w, http.StatusNotFound, "job not found")
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeStatus(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		h.writeError(w, domain.Invalid("body", "invalid JSON: %v", err))
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

func (h *Handler) writeStatus(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON error")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := map[string]interface{}{"error": err.Error()}

	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		body["field"] = ve.Field
	case errors.Is(err, context.Canceled):
		// client went away
		status = http.StatusRequestTimeout
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		h.log.Warn().Err(err).Msg("Simulation request timed out")
	default:
		h.log.Error().Err(err).Msg("Simulation request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		h.log.Error().Err(encErr).Msg("Failed to encode JSON error")
	}
}
