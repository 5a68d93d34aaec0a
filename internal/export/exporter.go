package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sdmx-explorer/internal/domain"
)

// Result lists where one dataflow's files were written.
type Result struct {
	Dataflow  string   `json:"dataflow"`
	Locations []string `json:"locations"`
}

// Exporter writes observation tables to an ObjectStore.
type Exporter struct {
	store   domain.ObjectStore
	parquet bool
	logger  *slog.Logger
}

// NewExporter creates an Exporter. With parquet set, a Parquet file is written
// next to each CSV.
func NewExporter(store domain.ObjectStore, parquet bool, logger *slog.Logger) *Exporter {
	return &Exporter{store: store, parquet: parquet, logger: logger}
}

// Export writes {dataflow}_data.csv, and the Parquet variant when enabled.
func (e *Exporter) Export(ctx context.Context, t *domain.ObservationTable) (Result, error) {
	res := Result{Dataflow: t.Dataflow}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return res, fmt.Errorf("export %s: %w", t.Dataflow, err)
	}
	loc, err := e.put(ctx, FileName(t.Dataflow, "csv"), ContentTypeCSV, &buf)
	if err != nil {
		return res, err
	}
	res.Locations = append(res.Locations, loc)

	if e.parquet {
		buf.Reset()
		if err := WriteParquet(&buf, t); err != nil {
			return res, fmt.Errorf("export %s: %w", t.Dataflow, err)
		}
		loc, err := e.put(ctx, FileName(t.Dataflow, "parquet"), ContentTypeParquet, &buf)
		if err != nil {
			return res, err
		}
		res.Locations = append(res.Locations, loc)
	}
	return res, nil
}

// ExportAll exports every table. A failing table does not stop the others;
// all failures are joined into the returned error.
func (e *Exporter) ExportAll(ctx context.Context, tables []*domain.ObservationTable) ([]Result, error) {
	var (
		results []Result
		errs    []error
	)
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := e.Export(ctx, t)
		if err != nil {
			e.logger.Warn("export failed", "dataflow", t.Dataflow, "error", err)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func (e *Exporter) put(ctx context.Context, key, contentType string, body *bytes.Buffer) (string, error) {
	size := body.Len()
	if err := e.store.Put(ctx, key, contentType, bytes.NewReader(body.Bytes())); err != nil {
		return "", fmt.Errorf("store %s: %w", key, err)
	}
	loc := e.store.Location(key)
	e.logger.Info("exported", "file", loc, "bytes", size)
	return loc, nil
}
