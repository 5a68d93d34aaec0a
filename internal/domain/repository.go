package domain

import (
	"context"
	"time"
)

// CachedResponse is a previously fetched SDMX response body.
type CachedResponse struct {
	URL       string
	Body      []byte
	Status    int
	FetchedAt time.Time
}

// ResponseCacheRepository stores successful SDMX responses keyed by URL.
type ResponseCacheRepository interface {
	Get(ctx context.Context, url string, maxAge time.Duration) (*CachedResponse, bool, error)
	Put(ctx context.Context, resp CachedResponse) error
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}
