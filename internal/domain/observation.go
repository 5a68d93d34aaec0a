package domain

import "math"

// Well-known observation table columns.
const (
	ColumnGeographicalArea = "Geographical area"
	ColumnIndicator        = "Indicator"
	ColumnTimePeriod       = "TIME_PERIOD"
	ColumnObsValue         = "OBS_VALUE"
	ColumnDataflow         = "dataflow"
	ColumnSex              = "SEX"
)

// ObservationTable is a tabular SDMX result with a dynamic column set.
// Rows hold the raw cells. Values holds OBS_VALUE coerced to float64 per row,
// NaN marking a missing value; it is nil when the table has no OBS_VALUE column.
type ObservationTable struct {
	Dataflow string
	Columns  []string
	Rows     [][]string
	Values   []float64
}

// Len returns the number of rows.
func (t *ObservationTable) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of name, or -1.
func (t *ObservationTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table has a column called name.
func (t *ObservationTable) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Cell returns the raw cell at row i of column col, or "" when absent.
func (t *ObservationTable) Cell(i, col int) string {
	if col < 0 || i < 0 || i >= len(t.Rows) || col >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][col]
}

// Value returns the coerced OBS_VALUE of row i, NaN when missing.
func (t *ObservationTable) Value(i int) float64 {
	if i < 0 || i >= len(t.Values) {
		return math.NaN()
	}
	return t.Values[i]
}

// MissingValues counts the NaN entries of Values.
func (t *ObservationTable) MissingValues() int {
	n := 0
	for _, v := range t.Values {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the table.
func (t *ObservationTable) Clone() *ObservationTable {
	out := &ObservationTable{
		Dataflow: t.Dataflow,
		Columns:  append([]string(nil), t.Columns...),
		Rows:     make([][]string, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	if t.Values != nil {
		out.Values = append([]float64(nil), t.Values...)
	}
	return out
}
