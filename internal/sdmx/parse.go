package sdmx

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"sdmx-explorer/internal/domain"
)

// ParseCSV reads an SDMX CSV body into an observation table tagged with dataflow.
// OBS_VALUE is coerced to float64; values that do not parse become NaN.
func ParseCSV(dataflow string, body []byte) (*domain.ObservationTable, error) {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	reader := csv.NewReader(bytes.NewReader(body))
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &domain.ObservationTable{
		Dataflow: dataflow,
		Columns:  make([]string, len(header)),
	}
	for i, h := range header {
		t.Columns[i] = strings.TrimSpace(h)
	}

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, rec)
	}

	CoerceValues(t)
	tagDataflow(t, dataflow)
	return t, nil
}

// CoerceValues fills t.Values from the OBS_VALUE column. It never fails.
func CoerceValues(t *domain.ObservationTable) {
	col := t.ColumnIndex(domain.ColumnObsValue)
	if col < 0 {
		t.Values = nil
		return
	}
	t.Values = make([]float64, len(t.Rows))
	for i := range t.Rows {
		t.Values[i] = ParseNumber(t.Cell(i, col))
	}
}

// ParseNumber parses s as a float64, returning NaN when it is not numeric.
func ParseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func tagDataflow(t *domain.ObservationTable, dataflow string) {
	col := t.ColumnIndex(domain.ColumnDataflow)
	if col < 0 {
		t.Columns = append(t.Columns, domain.ColumnDataflow)
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], dataflow)
		}
		return
	}
	for i := range t.Rows {
		t.Rows[i][col] = dataflow
	}
}
