package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all scan routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/scan", h.HandleScan)
}
