// Package table normalizes, filters and aggregates SDMX observation tables.
package table

import (
	"sort"

	"sdmx-explorer/internal/domain"
)

// GeographySynonyms are header names the service uses for the geography column.
var GeographySynonyms = []string{"Country", "Geographic area", "Geo area", "Reference Areas", "Areas"}

// IndicatorSynonyms are header names the service uses for the indicator column.
var IndicatorSynonyms = []string{"Coverage Indicators", "Coverage indicators"}

// Normalize renames synonym columns to their canonical names in place. A rename only
// happens while the canonical name is absent, so applying it twice changes nothing.
func Normalize(t *domain.ObservationTable) {
	renameFirst(t, GeographySynonyms, domain.ColumnGeographicalArea)
	renameFirst(t, IndicatorSynonyms, domain.ColumnIndicator)
}

// renameFirst renames the first synonym present to canonical. Later synonyms keep
// their names so the table never ends up with duplicate headers.
func renameFirst(t *domain.ObservationTable, synonyms []string, canonical string) {
	if t.HasColumn(canonical) {
		return
	}
	for _, s := range synonyms {
		if i := t.ColumnIndex(s); i >= 0 {
			t.Columns[i] = canonical
			return
		}
	}
}

// RequireColumns returns a *domain.MissingColumnError for the first absent column.
func RequireColumns(t *domain.ObservationTable, cols ...string) error {
	for _, c := range cols {
		if !t.HasColumn(c) {
			return domain.ErrMissingColumn(t.Dataflow, c)
		}
	}
	return nil
}

// Distinct returns the sorted distinct non-empty values of col.
func Distinct(t *domain.ObservationTable, col string) []string {
	idx := t.ColumnIndex(col)
	if idx < 0 {
		return nil
	}
	seen := make(map[string]struct{})
	out := []string{}
	for i := range t.Rows {
		v := t.Cell(i, idx)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// NUnique counts the distinct non-empty values of col.
func NUnique(t *domain.ObservationTable, col string) int {
	return len(Distinct(t, col))
}
