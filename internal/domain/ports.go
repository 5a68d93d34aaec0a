package domain

import (
	"context"
	"io"
)

// DataflowFetcher retrieves one dataflow as an observation table.
// Implemented by sdmx.Client.
type DataflowFetcher interface {
	Fetch(ctx context.Context, q DataflowQuery) (*ObservationTable, FetchOutcome, error)
}

// ObjectStore accepts exported files.
// Implemented by export.LocalStore, export.S3Store, export.AzureStore and export.GCSStore.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	// Location describes where key ends up, for user-facing messages.
	Location(key string) string
}
