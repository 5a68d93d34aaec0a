package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sdmx-explorer/internal/domain"
)

var _ domain.ResponseCacheRepository = (*ResponseCacheRepo)(nil)

// ResponseCacheRepo stores SDMX response bodies in the sdmx_responses table.
// Writes go through writeDB; lookups use readDB.
type ResponseCacheRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
	now     func() time.Time
}

// NewResponseCacheRepo creates a ResponseCacheRepo. readDB may be nil, in which
// case writeDB serves reads too.
func NewResponseCacheRepo(writeDB, readDB *sql.DB) *ResponseCacheRepo {
	if readDB == nil {
		readDB = writeDB
	}
	return &ResponseCacheRepo{writeDB: writeDB, readDB: readDB, now: time.Now}
}

// Get returns the cached response for url when it is younger than maxAge.
// A non-positive maxAge accepts any age.
func (r *ResponseCacheRepo) Get(ctx context.Context, url string, maxAge time.Duration) (*domain.CachedResponse, bool, error) {
	var (
		resp    domain.CachedResponse
		fetched int64
	)
	err := r.readDB.QueryRowContext(ctx,
		`SELECT url, body, status, fetched_at FROM sdmx_responses WHERE url = ?`, url,
	).Scan(&resp.URL, &resp.Body, &resp.Status, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached response: %w", mapDBError(err))
	}

	resp.FetchedAt = time.Unix(0, fetched)
	if maxAge > 0 && r.now().Sub(resp.FetchedAt) > maxAge {
		return nil, false, nil
	}
	return &resp, true, nil
}

// Put inserts or replaces the cached response for resp.URL.
func (r *ResponseCacheRepo) Put(ctx context.Context, resp domain.CachedResponse) error {
	if resp.FetchedAt.IsZero() {
		resp.FetchedAt = r.now()
	}
	_, err := r.writeDB.ExecContext(ctx,
		`INSERT INTO sdmx_responses (url, body, status, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET body = excluded.body, status = excluded.status, fetched_at = excluded.fetched_at`,
		resp.URL, resp.Body, resp.Status, resp.FetchedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("put cached response: %w", mapDBError(err))
	}
	return nil
}

// Purge deletes responses fetched before olderThan and returns how many were removed.
func (r *ResponseCacheRepo) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.writeDB.ExecContext(ctx,
		`DELETE FROM sdmx_responses WHERE fetched_at < ?`, olderThan.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge cached responses: %w", mapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge cached responses: %w", err)
	}
	return n, nil
}

// Count returns the number of cached responses.
func (r *ResponseCacheRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.readDB.QueryRowContext(ctx, `SELECT count(*) FROM sdmx_responses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cached responses: %w", mapDBError(err))
	}
	return n, nil
}
