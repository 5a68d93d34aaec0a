// Package ui serves the server-rendered explorer pages.
package ui

import (
	"errors"
	"log/slog"
	"net/http"

	gomponents "maragu.dev/gomponents"

	"sdmx-explorer/internal/chart"
	"sdmx-explorer/internal/domain"
	"sdmx-explorer/internal/service/explore"
)

// maxTableRows caps the rows shown per dataflow on the results page.
const maxTableRows = 200

// Handler serves the explorer UI.
type Handler struct {
	Explore    *explore.Service
	Production bool
	logger     *slog.Logger
}

// NewHandler creates a UI Handler.
func NewHandler(explorer *explore.Service, production bool, logger *slog.Logger) *Handler {
	return &Handler{Explore: explorer, Production: production, logger: logger}
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

// errorStatus maps domain errors to an HTTP status, title and user message.
func errorStatus(err error) (int, string, string) {
	var (
		notFound   *domain.NotFoundError
		validation *domain.ValidationError
		fetch      *domain.FetchError
		missing    *domain.MissingColumnError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, "Invalid Selection", validation.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, "Not Found", notFound.Error()
	case errors.As(err, &fetch):
		return http.StatusBadGateway, "Data Service Error", fetch.Error()
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity, "Missing Column", missing.Error()
	case errors.Is(err, chart.ErrNothingToPlot):
		return http.StatusUnprocessableEntity, "Nothing to Plot", err.Error()
	case errors.Is(err, explore.ErrExportDisabled):
		return http.StatusConflict, "Export Unavailable", "Exports are not configured on this server."
	default:
		return http.StatusInternalServerError, "Unexpected Error", "An unexpected error occurred while loading this page."
	}
}

func (h *Handler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, title, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "ui request failed", "path", r.URL.Path, "error", err)
	}
	renderHTML(w, status, errorPage(title, message))
}

// renderPlainError answers non-HTML endpoints such as chart images.
func (h *Handler) renderPlainError(w http.ResponseWriter, r *http.Request, err error) {
	status, _, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "ui request failed", "path", r.URL.Path, "error", err)
	}
	http.Error(w, message, status)
}
