package table

import "sdmx-explorer/internal/domain"

// GroupNone explicitly disables the grouping column.
const GroupNone = "None"

// Grouping is the inferred colour grouping for a chart. When the result covers a
// single indicator there is nothing to group by, and the indicator becomes the title.
type Grouping struct {
	Column string
	Title  string
}

// DefaultAxes returns TIME_PERIOD and OBS_VALUE when present, else the first column.
func DefaultAxes(t *domain.ObservationTable) (x, y string) {
	first := ""
	if len(t.Columns) > 0 {
		first = t.Columns[0]
	}
	x, y = first, first
	if t.HasColumn(domain.ColumnTimePeriod) {
		x = domain.ColumnTimePeriod
	}
	if t.HasColumn(domain.ColumnObsValue) {
		y = domain.ColumnObsValue
	}
	return x, y
}

// DefaultGrouping infers which dimension the user varied: several geographical
// areas win, then several indicators. A single indicator becomes the chart title.
func DefaultGrouping(t *domain.ObservationTable) Grouping {
	if t.HasColumn(domain.ColumnGeographicalArea) && NUnique(t, domain.ColumnGeographicalArea) > 1 {
		return Grouping{Column: domain.ColumnGeographicalArea}
	}
	if t.HasColumn(domain.ColumnIndicator) {
		values := Distinct(t, domain.ColumnIndicator)
		switch {
		case len(values) > 1:
			return Grouping{Column: domain.ColumnIndicator}
		case len(values) == 1:
			return Grouping{Title: values[0]}
		default:
			return Grouping{}
		}
	}
	if t.HasColumn("Reference Areas") && NUnique(t, "Reference Areas") > 1 {
		return Grouping{Column: "Reference Areas"}
	}
	if t.HasColumn("sex") {
		return Grouping{Column: "sex"}
	}
	return Grouping{}
}

// DefaultChartKind draws a line unless there is at most one point to draw.
func DefaultChartKind(a *Aggregated) domain.ChartKind {
	if a.Len() <= 1 {
		return domain.ChartBar
	}
	return domain.ChartLine
}
