// Package explore runs a selection end to end: validate, resolve, fetch, store.
package explore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sdmx-explorer/internal/domain"
	"sdmx-explorer/internal/export"
	"sdmx-explorer/internal/sdmx"
	"sdmx-explorer/internal/service/selection"
	"sdmx-explorer/internal/session"
	"sdmx-explorer/internal/table"
)

// BatchFetcher retrieves several dataflows, reporting one outcome per query.
// Implemented by sdmx.Client.
type BatchFetcher interface {
	FetchAll(ctx context.Context, queries []domain.DataflowQuery) (map[string]*domain.ObservationTable, []domain.FetchOutcome)
}

var _ BatchFetcher = (*sdmx.Client)(nil)

// ErrExportDisabled is returned by Export when no exporter is configured.
var ErrExportDisabled = errors.New("export is not configured")

// Report summarizes one exploration.
type Report struct {
	Selection domain.Selection
	Result    *domain.SelectionResult
	Flows     []string
	Queries   []domain.DataflowQuery
	Outcomes  []domain.FetchOutcome
	// ResolveErrors lists chosen flows that had no catalog mapping.
	ResolveErrors []error
}

// Succeeded returns the names of the dataflows that produced a table.
func (r *Report) Succeeded() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.OK() {
			out = append(out, o.Dataflow)
		}
	}
	return out
}

// Failed returns the outcomes that did not produce a table.
func (r *Report) Failed() []domain.FetchOutcome {
	var out []domain.FetchOutcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Service orchestrates explorations and keeps their results in a session store.
type Service struct {
	selection *selection.Service
	fetcher   BatchFetcher
	store     *session.Store
	exporter  *export.Exporter
	logger    *slog.Logger
}

// NewService creates an explore Service. exporter may be nil when exports are not used.
func NewService(sel *selection.Service, fetcher BatchFetcher, store *session.Store, exporter *export.Exporter, logger *slog.Logger) *Service {
	return &Service{selection: sel, fetcher: fetcher, store: store, exporter: exporter, logger: logger}
}

// Selection returns the selection service.
func (s *Service) Selection() *selection.Service { return s.selection }

// Store returns the session store.
func (s *Service) Store() *session.Store { return s.store }

// Plan validates sel and resolves the queries that Explore would run, without fetching.
func (s *Service) Plan(sel domain.Selection) (*Report, error) {
	sel.Normalize()
	res, flows, err := s.selection.Resolve(sel)
	if err != nil {
		return nil, err
	}
	queries, resolveErrs := sdmx.Resolve(res, sel, flows)
	for _, e := range resolveErrs {
		s.logger.Warn("dataflow not resolved", "error", e)
	}
	return &Report{
		Selection:     sel,
		Result:        res,
		Flows:         flows,
		Queries:       queries,
		ResolveErrors: resolveErrs,
	}, nil
}

// Explore validates sel, fetches every chosen dataflow and replaces the session
// store with the tables that succeeded. When nothing succeeds the previous
// results stay in place. Validation failures are returned as errors;
// per-dataflow failures are reported in the Report.
func (s *Service) Explore(ctx context.Context, sel domain.Selection) (*Report, error) {
	report, err := s.Plan(sel)
	if err != nil {
		return nil, err
	}
	if len(report.Queries) == 0 {
		return report, errors.Join(report.ResolveErrors...)
	}

	tables, outcomes := s.fetcher.FetchAll(ctx, report.Queries)
	report.Outcomes = outcomes
	if len(tables) > 0 {
		s.store.Replace(report.Selection, entries(report.Queries, tables, outcomes))
	}
	s.store.RecordOutcomes(outcomes)

	s.logger.Info("exploration complete",
		"selection", report.Selection.String(),
		"requested", len(report.Queries),
		"succeeded", len(report.Succeeded()),
	)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("explore: %w", err)
	}
	return report, nil
}

// Refresh re-fetches the dataflows in the session store with their last queries.
// Dataflows that fail keep their previous table.
func (s *Service) Refresh(ctx context.Context) (*Report, error) {
	previous := s.store.Entries()
	if len(previous) == 0 {
		return &Report{}, nil
	}
	queries := s.store.Queries()
	sel := s.store.Selection()

	tables, outcomes := s.fetcher.FetchAll(ctx, queries)
	fresh := make(map[string]session.Entry)
	for _, e := range entries(queries, tables, outcomes) {
		fresh[e.Table.Dataflow] = e
	}
	merged := make([]session.Entry, 0, len(previous))
	for _, old := range previous {
		if e, ok := fresh[old.Table.Dataflow]; ok {
			merged = append(merged, e)
			continue
		}
		merged = append(merged, *old)
	}
	s.store.Replace(sel, merged)
	s.store.RecordOutcomes(outcomes)

	report := &Report{Selection: sel, Queries: queries, Outcomes: outcomes}
	s.logger.Info("refresh complete", "requested", len(queries), "succeeded", len(report.Succeeded()))
	return report, ctx.Err()
}

// View builds a chart-ready view of a stored dataflow.
func (s *Service) View(dataflow string, opts table.ViewOptions) (*table.View, error) {
	e, err := s.store.Get(dataflow)
	if err != nil {
		return nil, err
	}
	return table.BuildView(e.Table, opts)
}

// Table returns a stored dataflow table.
func (s *Service) Table(dataflow string) (*domain.ObservationTable, error) {
	e, err := s.store.Get(dataflow)
	if err != nil {
		return nil, err
	}
	return e.Table, nil
}

// Export writes the named dataflows, or every stored dataflow when none are
// named, through the configured exporter.
func (s *Service) Export(ctx context.Context, dataflows ...string) ([]export.Result, error) {
	if s.exporter == nil {
		return nil, ErrExportDisabled
	}
	if len(dataflows) == 0 {
		dataflows = s.store.Names()
	}
	tables := make([]*domain.ObservationTable, 0, len(dataflows))
	for _, name := range dataflows {
		t, err := s.Table(name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return s.exporter.ExportAll(ctx, tables)
}

// RefreshAndExport re-fetches the stored dataflows and exports them. It is the
// scheduled job.
func (s *Service) RefreshAndExport(ctx context.Context) error {
	if s.store.Len() == 0 {
		s.logger.Debug("nothing to refresh")
		return nil
	}
	report, err := s.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	for _, o := range report.Failed() {
		s.logger.Warn("refresh failed", "dataflow", o.Dataflow, "error", o.Err)
	}
	if _, err := s.Export(ctx); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

func entries(queries []domain.DataflowQuery, tables map[string]*domain.ObservationTable, outcomes []domain.FetchOutcome) []session.Entry {
	outcomeOf := make(map[string]domain.FetchOutcome, len(outcomes))
	for _, o := range outcomes {
		outcomeOf[o.Dataflow] = o
	}
	out := make([]session.Entry, 0, len(tables))
	for _, q := range queries {
		t, ok := tables[q.DataflowName]
		if !ok {
			continue
		}
		out = append(out, session.Entry{Table: t, Query: q, Outcome: outcomeOf[q.DataflowName]})
	}
	return out
}
