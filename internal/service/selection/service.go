// Package selection narrows the reference catalog from user picks and enforces
// the selection constraints.
package selection

import (
	"log/slog"

	"sdmx-explorer/internal/catalog"
	"sdmx-explorer/internal/domain"
)

// Options lists what the user can pick next given a partial selection.
type Options struct {
	Countries  []string
	Categories []string
	Indicators []string
}

// Service validates selections against the reference catalog.
type Service struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// NewService creates a new selection Service.
func NewService(cat *catalog.Catalog, logger *slog.Logger) *Service {
	return &Service{catalog: cat, logger: logger}
}

// Catalog returns the underlying reference catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Options returns the choices available for a partial selection. It never fails:
// each list is computed as far as the selection allows.
func (s *Service) Options(sel domain.Selection) Options {
	sel.Normalize()
	opts := Options{Countries: s.catalog.Countries()}
	if len(sel.Countries) == 0 {
		return opts
	}
	rows := catalog.FilterLevel(catalog.FilterCountries(s.catalog.Rows(), sel.Countries), sel.Level)
	opts.Categories = catalog.Categories(rows)
	opts.Indicators = catalog.Indicators(catalog.FilterCategories(rows, sel.Categories))
	return opts
}

// Apply filters the catalog for sel and returns the candidate dataflows.
// Constraint violations are returned as *domain.ValidationError.
func (s *Service) Apply(sel domain.Selection) (*domain.SelectionResult, error) {
	sel.Normalize()

	if len(sel.Countries) == 0 {
		return nil, domain.ErrValidation("please select at least one country")
	}

	rows := catalog.FilterCountries(s.catalog.Rows(), sel.Countries)
	rows = catalog.FilterLevel(rows, sel.Level)

	if sel.Level == domain.LevelSubnational {
		if len(sel.Countries) != 1 {
			return nil, domain.ErrValidation("for subnational data, please select exactly one country")
		}
		if len(rows) == 0 {
			return nil, domain.ErrValidation("no subnational data available for the selected country")
		}
	}

	rows = catalog.FilterCategories(rows, sel.Categories)

	if len(sel.Indicators) == 0 {
		return nil, domain.ErrValidation("please select at least one indicator")
	}
	if sel.Level == domain.LevelSubnational && len(sel.Indicators) != 1 {
		return nil, domain.ErrValidation("for subnational data, please select exactly one indicator")
	}
	if len(sel.Countries) > 1 && len(sel.Indicators) > 1 {
		return nil, domain.ErrValidation("please select either multiple countries with one indicator, or one country with multiple indicators")
	}

	candidates := catalog.FilterIndicators(rows, sel.Indicators)
	flows := catalog.DataflowNames(candidates)
	if len(flows) == 0 {
		return nil, domain.ErrValidation("no data flows found for the selected geography, category, and indicator(s)")
	}

	res := &domain.SelectionResult{
		Rows:           candidates,
		CandidateFlows: flows,
		AutoSelected:   len(flows) == 1,
	}
	if res.AutoSelected {
		s.logger.Info("automatically selected dataflow", "dataflow", flows[0])
	} else {
		s.logger.Debug("multiple candidate dataflows", "count", len(flows), "dataflows", flows)
	}
	return res, nil
}

// ChooseFlows resolves which candidate dataflows to query. An auto-selected
// result needs no request. Otherwise the request must be a non-empty subset of
// the candidates.
func (s *Service) ChooseFlows(res *domain.SelectionResult, requested []string) ([]string, error) {
	requested = domain.UniqueStrings(requested)
	if res.AutoSelected {
		return append([]string(nil), res.CandidateFlows...), nil
	}
	if len(requested) == 0 {
		return nil, domain.ErrValidation("please select at least one data flow")
	}

	candidates := make(map[string]bool, len(res.CandidateFlows))
	for _, f := range res.CandidateFlows {
		candidates[f] = true
	}
	for _, f := range requested {
		if !candidates[f] {
			return nil, domain.ErrValidation("dataflow %q is not a candidate for this selection", f)
		}
	}
	return requested, nil
}

// Resolve runs Apply and ChooseFlows in one step using sel.Dataflows as the
// request, or every candidate when sel.AllDataflows is set.
func (s *Service) Resolve(sel domain.Selection) (*domain.SelectionResult, []string, error) {
	res, err := s.Apply(sel)
	if err != nil {
		return nil, nil, err
	}
	requested := sel.Dataflows
	if sel.AllDataflows {
		requested = res.CandidateFlows
	}
	flows, err := s.ChooseFlows(res, requested)
	if err != nil {
		return nil, nil, err
	}
	return res, flows, nil
}
