package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all simulation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/simulations", func(r chi.Router) {
		r.Post("/credit", h.HandleCredit)
		r.Post("/forex", h.HandleForex)
		r.Post("/sweep", h.HandleSweep)

		r.Post("/jobs", h.HandleSubmitJob)
		r.Get("/jobs/{id}", h.HandleGetJob)
	})
}
