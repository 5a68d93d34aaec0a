// Package sdmx resolves dataflow selections into SDMX REST queries and
// retrieves observation tables with a tiered URL fallback.
package sdmx

import (
	"fmt"
	"net/url"
	"strings"

	"sdmx-explorer/internal/domain"
)

// QueryShape renders the positional key segment of a data query.
// The live service is inconsistent about which positional ordering a dataflow
// expects, so the client tries shapes in order until one answers 200.
type QueryShape struct {
	Name string
	Key  func(q domain.DataflowQuery) string
}

// Built-in shapes, in the order they are tried.
var (
	// ShapePrimary is {geo}.{indicator}.
	ShapePrimary = QueryShape{
		Name: "primary",
		Key: func(q domain.DataflowQuery) string {
			return joinValues(q.GeographyIDs) + "." + joinValues(q.IndicatorIDs)
		},
	}
	// ShapeLeadingSlot is .{geo}..{indicator}.
	ShapeLeadingSlot = QueryShape{
		Name: "leading-slot",
		Key: func(q domain.DataflowQuery) string {
			return "." + joinValues(q.GeographyIDs) + ".." + joinValues(q.IndicatorIDs)
		},
	}
	// ShapeIndicatorFirst is {indicator}..{geography names}.
	ShapeIndicatorFirst = QueryShape{
		Name: "indicator-first",
		Key: func(q domain.DataflowQuery) string {
			return joinValues(q.IndicatorIDs) + ".." + joinValues(q.GeographyNames) + "."
		},
	}
)

// DefaultShapes returns the fallback order used by the UNICEF service.
func DefaultShapes() []QueryShape {
	return []QueryShape{ShapePrimary, ShapeLeadingSlot, ShapeIndicatorFirst}
}

// joinValues joins multi-values with "+", the service's OR separator.
func joinValues(values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = url.PathEscape(v)
	}
	return strings.Join(escaped, "+")
}

// DataURL builds the CSV data URL for q using shape.
func DataURL(baseURL, version string, q domain.DataflowQuery, shape QueryShape) string {
	return fmt.Sprintf("%s/data/%s,%s,%s/%s?format=csv&labels=both",
		strings.TrimRight(baseURL, "/"), q.Agency, q.DataflowID, version, shape.Key(q))
}
