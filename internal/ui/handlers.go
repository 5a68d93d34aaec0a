package ui

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"sdmx-explorer/internal/chart"
	"sdmx-explorer/internal/domain"
	"sdmx-explorer/internal/export"
	"sdmx-explorer/internal/service/explore"
	"sdmx-explorer/internal/table"
)

// Home renders the selection form, prefilled with the last explored selection.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	sel := h.Explore.Store().Selection()
	renderHTML(w, http.StatusOK, selectionPage(r, h.selectionState(sel, "")))
}

// ExploreSubmit handles the selection form. The "refresh" action only
// recomputes the available options; anything else runs the exploration.
func (h *Handler) ExploreSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderHTML(w, http.StatusBadRequest, errorPage("Bad Request", "The form could not be read."))
		return
	}
	sel, err := selectionFromForm(r.PostForm)
	if err != nil {
		renderHTML(w, http.StatusBadRequest, selectionPage(r, h.selectionState(domain.Selection{}, err.Error())))
		return
	}

	if formString(r.PostForm, "action") == "refresh" {
		renderHTML(w, http.StatusOK, selectionPage(r, h.selectionState(sel, "")))
		return
	}

	if _, err := h.Explore.Explore(r.Context(), sel); err != nil {
		var validation *domain.ValidationError
		if errors.As(err, &validation) {
			renderHTML(w, http.StatusBadRequest, selectionPage(r, h.selectionState(sel, validation.Error())))
			return
		}
		h.renderServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, "/results", http.StatusSeeOther)
}

// selectionState computes the form options and, when the selection is valid
// so far, the candidate dataflows.
func (h *Handler) selectionState(sel domain.Selection, message string) selectionState {
	svc := h.Explore.Selection()
	state := selectionState{
		Selection: sel,
		Options:   svc.Options(sel),
		Error:     message,
	}
	if len(sel.Countries) == 0 || len(sel.Indicators) == 0 {
		return state
	}
	res, err := svc.Apply(sel)
	if err != nil {
		if state.Error == "" {
			state.Error = err.Error()
		}
		return state
	}
	state.Candidates = res.CandidateFlows
	state.AutoSelected = res.AutoSelected
	return state
}

// Results renders one card per stored dataflow. Query parameters override the
// chart of the dataflow named by "flow".
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	state, err := h.resultsState(r.URL.Query())
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	renderHTML(w, http.StatusOK, resultsPage(r, state))
}

func (h *Handler) resultsState(q url.Values) (resultsState, error) {
	store := h.Explore.Store()
	state := resultsState{Selection: store.Selection()}

	target := q.Get("flow")
	var overrides table.ViewOptions
	if target != "" {
		if _, err := store.Get(target); err != nil {
			return state, err
		}
		opts, err := viewOptionsFromQuery(q)
		if err != nil {
			return state, err
		}
		overrides = opts
	}

	for _, e := range store.Entries() {
		opts := table.ViewOptions{}
		if e.Table.Dataflow == target {
			opts = overrides
		}
		v, err := table.BuildView(e.Table, opts)
		state.Cards = append(state.Cards, resultCard{
			Entry:      e,
			Indicators: table.Distinct(e.Table, domain.ColumnIndicator),
			View:       v,
			ViewErr:    err,
		})
	}
	for _, o := range store.Outcomes() {
		if !o.OK() {
			state.Failed = append(state.Failed, o)
		}
	}
	return state, nil
}

// Refresh re-fetches the stored dataflows.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Explore.Refresh(r.Context()); err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, "/results", http.StatusSeeOther)
}

// ExportAll writes every stored dataflow to the configured sink.
func (h *Handler) ExportAll(w http.ResponseWriter, r *http.Request) {
	results, exportErr := h.Explore.Export(r.Context())
	if errors.Is(exportErr, explore.ErrExportDisabled) {
		h.renderServiceError(w, r, exportErr)
		return
	}
	state, err := h.resultsState(nil)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	for _, res := range results {
		for _, loc := range res.Locations {
			state.Notices = append(state.Notices, fmt.Sprintf("%s exported to %s", res.Dataflow, loc))
		}
	}
	status := http.StatusOK
	if exportErr != nil {
		h.logger.WarnContext(r.Context(), "export failed", "error", exportErr)
		state.Error = exportErr.Error()
		status = http.StatusBadGateway
	}
	renderHTML(w, status, resultsPage(r, state))
}

// ChartPNG renders a dataflow chart with the overrides from the query string.
func (h *Handler) ChartPNG(w http.ResponseWriter, r *http.Request) {
	flow := flowParam(r)
	opts, err := viewOptionsFromQuery(r.URL.Query())
	if err != nil {
		h.renderPlainError(w, r, err)
		return
	}
	v, err := h.Explore.View(flow, opts)
	if err != nil {
		h.renderPlainError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := chart.Render(&buf, v, chart.Options{}); err != nil {
		h.renderPlainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// DataCSV downloads the stored table of a dataflow.
func (h *Handler) DataCSV(w http.ResponseWriter, r *http.Request) {
	flow := flowParam(r)
	t, err := h.Explore.Table(flow)
	if err != nil {
		h.renderPlainError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, t); err != nil {
		h.renderPlainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentTypeCSV)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(flow, "csv")))
	_, _ = w.Write(buf.Bytes())
}

// Health reports liveness and how many dataflows the session holds.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"dataflows": h.Explore.Store().Len(),
	})
}

func flowParam(r *http.Request) string {
	raw := chi.URLParam(r, "flow")
	if flow, err := url.PathUnescape(raw); err == nil {
		return flow
	}
	return raw
}
