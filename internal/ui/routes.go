package ui

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the UI routes on r.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/healthz", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(h.EnsureCSRFToken)
		r.Use(h.RequireCSRF)
		r.Get("/", h.Home)
		r.Post("/explore", h.ExploreSubmit)
		r.Get("/results", h.Results)
		r.Post("/refresh", h.Refresh)
		r.Post("/export", h.ExportAll)
		r.Get("/results/{flow}/chart.png", h.ChartPNG)
		r.Get("/results/{flow}/data.csv", h.DataCSV)
	})
}
