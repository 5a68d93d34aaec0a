package domain

import "strings"

// ChartKind selects how an aggregated table is drawn.
type ChartKind string

// Supported chart kinds.
const (
	ChartLine    ChartKind = "line"
	ChartBar     ChartKind = "bar"
	ChartScatter ChartKind = "scatter"
)

// ChartKinds lists every supported kind in menu order.
var ChartKinds = []ChartKind{ChartLine, ChartBar, ChartScatter}

// ParseChartKind accepts "line", "Line Chart", "bar", "Scatter Plot" and similar.
// An empty string yields "" so callers can apply their own default.
func ParseChartKind(s string) (ChartKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return "", nil
	case strings.HasPrefix(s, "line"):
		return ChartLine, nil
	case strings.HasPrefix(s, "bar"):
		return ChartBar, nil
	case strings.HasPrefix(s, "scatter"):
		return ChartScatter, nil
	default:
		return "", ErrValidation("unsupported chart type %q: use line, bar or scatter", s)
	}
}
