package sdmx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"sdmx-explorer/internal/domain"
)

// Compile-time check: Client implements domain.DataflowFetcher.
var _ domain.DataflowFetcher = (*Client)(nil)

// maxBodyBytes caps a single response body.
const maxBodyBytes = 256 << 20

// Options configures a Client. Zero values fall back to the defaults of the
// public UNICEF endpoint.
type Options struct {
	BaseURL    string
	Version    string
	Timeout    time.Duration
	RPS        float64 // outbound requests per second; <= 0 disables throttling
	Burst      int
	Shapes     []QueryShape
	Cache      domain.ResponseCacheRepository // optional
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

// Client retrieves dataflows from an SDMX REST service.
type Client struct {
	http     *http.Client
	baseURL  string
	version  string
	shapes   []QueryShape
	limiter  *rate.Limiter
	group    singleflight.Group
	cache    domain.ResponseCacheRepository
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewClient creates a Client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://sdmx.data.unicef.org/ws/public/sdmxapi/rest"
	}
	if opts.Version == "" {
		opts.Version = "1.0"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if len(opts.Shapes) == 0 {
		opts.Shapes = DefaultShapes()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	return &Client{
		http:     httpClient,
		baseURL:  opts.BaseURL,
		version:  opts.Version,
		shapes:   opts.Shapes,
		limiter:  limiter,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		logger:   logger,
	}
}

// URLs returns the candidate URLs for q in the order they are tried.
func (c *Client) URLs(q domain.DataflowQuery) []string {
	urls := make([]string, len(c.shapes))
	for i, s := range c.shapes {
		urls[i] = DataURL(c.baseURL, c.version, q, s)
	}
	return urls
}

type response struct {
	status int
	body   []byte
	cached bool
}

// Fetch tries each query shape in order and parses the first 200 response.
// A non-200 status or a transport error moves on to the next shape. A body that
// fails to parse ends the attempt for this dataflow.
func (c *Client) Fetch(ctx context.Context, q domain.DataflowQuery) (*domain.ObservationTable, domain.FetchOutcome, error) {
	outcome := domain.FetchOutcome{Dataflow: q.DataflowName, Tier: -1}

	var lastErr error
	for tier, shape := range c.shapes {
		url := DataURL(c.baseURL, c.version, q, shape)
		outcome.URL = url
		c.logger.Info("fetching dataflow", "dataflow", q.DataflowName, "shape", shape.Name, "url", url)

		resp, err := c.get(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				outcome.Status = 0
				outcome.Err = domain.ErrFetch(q.DataflowName, 0, url, ctx.Err())
				return nil, outcome, outcome.Err
			}
			c.logger.Warn("dataflow request failed", "dataflow", q.DataflowName, "shape", shape.Name, "error", err)
			outcome.Status = 0
			lastErr = err
			continue
		}

		outcome.Status = resp.status
		if resp.status != http.StatusOK {
			c.logger.Warn("dataflow request returned non-200 status",
				"dataflow", q.DataflowName, "shape", shape.Name, "status", resp.status)
			lastErr = nil
			continue
		}

		table, err := ParseCSV(q.DataflowName, resp.body)
		if err != nil {
			outcome.Err = domain.ErrFetch(q.DataflowName, resp.status, url, fmt.Errorf("read CSV data: %w", err))
			return nil, outcome, outcome.Err
		}

		if c.cache != nil && !resp.cached {
			if err := c.cache.Put(ctx, domain.CachedResponse{
				URL: url, Body: resp.body, Status: resp.status, FetchedAt: time.Now().UTC(),
			}); err != nil {
				c.logger.Warn("cache response", "url", url, "error", err)
			}
		}

		outcome.Tier = tier
		outcome.Rows = table.Len()
		outcome.Cached = resp.cached
		return table, outcome, nil
	}

	outcome.Err = domain.ErrFetch(q.DataflowName, outcome.Status, outcome.URL, lastErr)
	return nil, outcome, outcome.Err
}

// FetchAll fetches queries one at a time in input order. A failing dataflow does
// not stop the others; tables is keyed by dataflow name and holds only successes.
func (c *Client) FetchAll(ctx context.Context, queries []domain.DataflowQuery) (map[string]*domain.ObservationTable, []domain.FetchOutcome) {
	tables := make(map[string]*domain.ObservationTable)
	outcomes := make([]domain.FetchOutcome, 0, len(queries))
	for _, q := range queries {
		table, outcome, err := c.Fetch(ctx, q)
		outcomes = append(outcomes, outcome)
		if err != nil {
			c.logger.Error("dataflow fetch failed", "dataflow", q.DataflowName, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		tables[q.DataflowName] = table
	}
	return tables, outcomes
}

func (c *Client) get(ctx context.Context, url string) (*response, error) {
	if c.cache != nil && c.cacheTTL > 0 {
		cached, ok, err := c.cache.Get(ctx, url, c.cacheTTL)
		if err != nil {
			c.logger.Warn("read response cache", "url", url, "error", err)
		} else if ok {
			c.logger.Debug("response cache hit", "url", url)
			return &response{status: cached.Status, body: cached.Body, cached: true}, nil
		}
	}

	v, err, _ := c.group.Do(url, func() (interface{}, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for rate limiter: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "text/csv")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("send request: %w", err)
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		return &response{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		return nil, err
	}
	resp, ok := v.(*response)
	if !ok {
		return nil, errors.New("unexpected response type")
	}
	return resp, nil
}
