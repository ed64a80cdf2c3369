package server

import (
	"encoding/json"
	"net/http"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "stresscore",
	}

	if err := s.container.ResultsDB.QuickCheck(r.Context()); err != nil {
		s.log.Warn().Err(err).Msg("Results database health check failed")
		response["status"] = "unhealthy"
		response["error"] = err.Error()
		s.writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleTriggerWALCheckpoint runs the WAL checkpoint job immediately
// POST /api/jobs/wal-checkpoint
func (s *Server) handleTriggerWALCheckpoint(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil || s.jobs.WALCheckpoint == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": "WAL checkpoint job not registered",
		})
		return
	}

	if err := s.container.Scheduler.RunNow(s.jobs.WALCheckpoint); err != nil {
		s.log.Error().Err(err).Msg("Manual WAL checkpoint failed")
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "WAL checkpoint completed",
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
