package table

import (
	"strings"

	"sdmx-explorer/internal/domain"
)

// ViewOptions carries user overrides. Empty fields take the inferred defaults.
type ViewOptions struct {
	// Filter nil means DefaultFilter; a zero EqualityFilter means no filter.
	Filter *EqualityFilter
	X      string
	Y      string
	// Group "" means DefaultGrouping; GroupNone disables grouping.
	Group string
	Kind  domain.ChartKind
}

// View is a filtered, aggregated, chart-ready projection of one observation table.
type View struct {
	Dataflow   string
	Filter     EqualityFilter
	Filtered   *domain.ObservationTable
	X          string
	Y          string
	Group      string
	Title      string
	Kind       domain.ChartKind
	Aggregated *Aggregated
}

// BuildView applies the filter, picks axes, grouping and chart kind, and aggregates.
func BuildView(t *domain.ObservationTable, opts ViewOptions) (*View, error) {
	v := &View{Dataflow: t.Dataflow}

	if opts.Filter != nil {
		v.Filter = *opts.Filter
		if v.Filter.Active() && v.Filter.Value == "" {
			v.Filter.Value = DefaultFilterValue(t, v.Filter.Field)
		}
	} else {
		v.Filter = DefaultFilter(t)
	}
	filtered, err := Filter(t, v.Filter)
	if err != nil {
		return nil, err
	}
	v.Filtered = filtered

	v.X, v.Y = DefaultAxes(t)
	if opts.X != "" {
		v.X = opts.X
	}
	if opts.Y != "" {
		v.Y = opts.Y
	}

	grouping := DefaultGrouping(filtered)
	v.Title = grouping.Title
	switch {
	case strings.EqualFold(opts.Group, GroupNone):
		v.Group = ""
	case opts.Group != "":
		v.Group = opts.Group
	default:
		v.Group = grouping.Column
	}

	agg, err := Aggregate(filtered, v.X, v.Y, v.Group)
	if err != nil {
		return nil, err
	}
	v.Aggregated = agg

	v.Kind = opts.Kind
	if v.Kind == "" {
		v.Kind = DefaultChartKind(agg)
	}
	return v, nil
}
