package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the stress test and capital routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/stress/test", h.HandleStressTest)

	r.Route("/capital", func(r chi.Router) {
		r.Post("/adequacy", h.HandleAdequacy)
		r.Post("/plan", h.HandlePlan)
	})
}
