// Package catalog loads the reference table that maps countries and indicators
// to SDMX dataflow, geography and indicator codes.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"sdmx-explorer/internal/domain"
)

// RequiredColumns lists the header fields every reference file must carry.
var RequiredColumns = []string{
	"country", "national", "category", "indicator", "indicator_id",
	"dataflow_name", "agency", "dataflow_id", "geography", "geography_id",
}

// Catalog is the immutable, in-memory reference table.
type Catalog struct {
	rows []domain.CatalogRow
}

// New wraps already-parsed rows.
func New(rows []domain.CatalogRow) *Catalog {
	return &Catalog{rows: append([]domain.CatalogRow(nil), rows...)}
}

// Load reads the reference file at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close() //nolint:errcheck

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse reads a reference table from r. Column order is free and extra columns are ignored.
func Parse(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty reference file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	get := func(rec []string, col string) string {
		i := idx[col]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []domain.CatalogRow
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		flag := get(rec, "national")
		if flag == "" {
			// Neither level: the row can never match a selection.
			continue
		}
		national, err := parseNational(flag)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, domain.CatalogRow{
			Country:      get(rec, "country"),
			National:     national,
			Category:     get(rec, "category"),
			Indicator:    get(rec, "indicator"),
			IndicatorID:  get(rec, "indicator_id"),
			DataflowName: get(rec, "dataflow_name"),
			Agency:       get(rec, "agency"),
			DataflowID:   get(rec, "dataflow_id"),
			Geography:    get(rec, "geography"),
			GeographyID:  get(rec, "geography_id"),
		})
	}
	return &Catalog{rows: rows}, nil
}

func parseNational(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "1.0", "true", "yes", "y":
		return true, nil
	case "0", "0.0", "false", "no", "n":
		return false, nil
	default:
		return false, fmt.Errorf("invalid national flag %q", s)
	}
}

// Rows returns a copy of every catalog row.
func (c *Catalog) Rows() []domain.CatalogRow {
	return append([]domain.CatalogRow(nil), c.rows...)
}

// Len returns the number of rows.
func (c *Catalog) Len() int { return len(c.rows) }

// Countries returns the sorted distinct countries of the whole catalog.
func (c *Catalog) Countries() []string {
	return distinct(c.rows, func(r domain.CatalogRow) string { return r.Country })
}

// Categories returns the sorted distinct categories of rows.
func Categories(rows []domain.CatalogRow) []string {
	return distinct(rows, func(r domain.CatalogRow) string { return r.Category })
}

// Indicators returns the sorted distinct indicators of rows.
func Indicators(rows []domain.CatalogRow) []string {
	return distinct(rows, func(r domain.CatalogRow) string { return r.Indicator })
}

// DataflowNames returns the sorted distinct dataflow names of rows.
func DataflowNames(rows []domain.CatalogRow) []string {
	return distinct(rows, func(r domain.CatalogRow) string { return r.DataflowName })
}

// FilterCountries keeps rows whose country is in countries.
func FilterCountries(rows []domain.CatalogRow, countries []string) []domain.CatalogRow {
	set := toSet(countries)
	return filter(rows, func(r domain.CatalogRow) bool { return set[r.Country] })
}

// FilterLevel keeps rows whose national flag matches level.
func FilterLevel(rows []domain.CatalogRow, level domain.Level) []domain.CatalogRow {
	national := level.IsNational()
	return filter(rows, func(r domain.CatalogRow) bool { return r.National == national })
}

// FilterCategories keeps rows whose category is in categories. An empty list keeps every row.
func FilterCategories(rows []domain.CatalogRow, categories []string) []domain.CatalogRow {
	if len(categories) == 0 {
		return rows
	}
	set := toSet(categories)
	return filter(rows, func(r domain.CatalogRow) bool { return set[r.Category] })
}

// FilterIndicators keeps rows whose indicator is in indicators.
func FilterIndicators(rows []domain.CatalogRow, indicators []string) []domain.CatalogRow {
	set := toSet(indicators)
	return filter(rows, func(r domain.CatalogRow) bool { return set[r.Indicator] })
}

// FilterDataflow keeps rows belonging to the named dataflow.
func FilterDataflow(rows []domain.CatalogRow, name string) []domain.CatalogRow {
	return filter(rows, func(r domain.CatalogRow) bool { return r.DataflowName == name })
}

func filter(rows []domain.CatalogRow, keep func(domain.CatalogRow) bool) []domain.CatalogRow {
	out := make([]domain.CatalogRow, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func distinct(rows []domain.CatalogRow, field func(domain.CatalogRow) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range rows {
		v := field(r)
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

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
