package table

import "sdmx-explorer/internal/domain"

// EqualityFilter keeps rows whose Field equals Value. The zero value keeps everything.
type EqualityFilter struct {
	Field string
	Value string
}

// Active reports whether the filter restricts rows.
func (f EqualityFilter) Active() bool { return f.Field != "" }

// DefaultFilter picks SEX=_T when SEX varies, falling back to the first sorted SEX value.
// Otherwise no filter is applied.
func DefaultFilter(t *domain.ObservationTable) EqualityFilter {
	values := Distinct(t, domain.ColumnSex)
	if len(values) <= 1 {
		return EqualityFilter{}
	}
	for _, v := range values {
		if v == "_T" {
			return EqualityFilter{Field: domain.ColumnSex, Value: v}
		}
	}
	return EqualityFilter{Field: domain.ColumnSex, Value: values[0]}
}

// DefaultFilterValue returns the value preselected when the user picks field.
func DefaultFilterValue(t *domain.ObservationTable, field string) string {
	values := Distinct(t, field)
	if len(values) == 0 {
		return ""
	}
	if field == domain.ColumnSex {
		for _, v := range values {
			if v == "_T" {
				return v
			}
		}
	}
	return values[0]
}

// Filter returns a new table holding the rows that match f.
func Filter(t *domain.ObservationTable, f EqualityFilter) (*domain.ObservationTable, error) {
	if !f.Active() {
		return t, nil
	}
	col := t.ColumnIndex(f.Field)
	if col < 0 {
		return nil, domain.ErrMissingColumn(t.Dataflow, f.Field)
	}

	out := &domain.ObservationTable{
		Dataflow: t.Dataflow,
		Columns:  append([]string(nil), t.Columns...),
	}
	if t.Values != nil {
		out.Values = []float64{}
	}
	for i, row := range t.Rows {
		if t.Cell(i, col) != f.Value {
			continue
		}
		out.Rows = append(out.Rows, row)
		if t.Values != nil {
			out.Values = append(out.Values, t.Value(i))
		}
	}
	return out, nil
}
