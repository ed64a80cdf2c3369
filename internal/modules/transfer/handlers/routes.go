package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all transfer routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/transfer", func(r chi.Router) {
		r.Post("/credit-score", h.HandleCreditScore)
		r.Post("/forex-multiplier", h.HandleForexMultiplier)
	})
}
