// Package export writes observation tables as files and delivers them to a sink.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"sdmx-explorer/internal/domain"
)

// Content types of the exported formats.
const (
	ContentTypeCSV     = "text/csv"
	ContentTypeParquet = "application/vnd.apache.parquet"
)

// FileName returns the export file name for a dataflow, e.g. "NUTRITION_data.csv".
func FileName(dataflow, ext string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, dataflow)
	if safe == "" {
		safe = "dataflow"
	}
	return safe + "_data." + ext
}

// WriteCSV writes t with a header row. OBS_VALUE is written from the coerced
// values, so unparseable observations become empty cells.
func WriteCSV(w io.Writer, t *domain.ObservationTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	obs := -1
	if t.Values != nil {
		obs = t.ColumnIndex(domain.ColumnObsValue)
	}
	record := make([]string, len(t.Columns))
	for i := range t.Rows {
		for c := range t.Columns {
			if c == obs {
				record[c] = FormatValue(t.Value(i))
				continue
			}
			record[c] = t.Cell(i, c)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// FormatValue renders an observation value, NaN as the empty string.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
