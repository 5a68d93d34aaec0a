// Package app wires the explorer's services from configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"sdmx-explorer/internal/catalog"
	"sdmx-explorer/internal/config"
	internaldb "sdmx-explorer/internal/db"
	"sdmx-explorer/internal/db/repository"
	"sdmx-explorer/internal/export"
	"sdmx-explorer/internal/schedule"
	"sdmx-explorer/internal/sdmx"
	"sdmx-explorer/internal/service/explore"
	"sdmx-explorer/internal/service/selection"
	"sdmx-explorer/internal/session"
)

// RefreshJobName names the scheduled refresh-and-export job.
const RefreshJobName = "refresh-export"

// Deps holds what the caller must provide.
type Deps struct {
	Cfg    *config.Config
	Logger *slog.Logger
	// Catalog overrides loading Cfg.CatalogPath when set.
	Catalog *catalog.Catalog
}

// App holds the fully wired explorer.
type App struct {
	Catalog   *catalog.Catalog
	Selection *selection.Service
	Client    *sdmx.Client
	Store     *session.Store
	Exporter  *export.Exporter
	Explore   *explore.Service
	// Cache is nil when CACHE_DB_PATH is unset.
	Cache *repository.ResponseCacheRepo

	logger  *slog.Logger
	closers []func() error
}

// New loads the catalog, opens the optional response cache and export sink,
// and wires the services.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger
	a := &App{logger: logger}

	cat := deps.Catalog
	if cat == nil {
		var err error
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}
	a.Catalog = cat
	logger.Info("catalog loaded", "path", cfg.CatalogPath, "rows", cat.Len())

	opts := sdmx.Options{
		BaseURL:  cfg.SDMX.BaseURL,
		Version:  cfg.SDMX.Version,
		Timeout:  cfg.SDMX.Timeout,
		RPS:      cfg.SDMX.RPS,
		Burst:    cfg.SDMX.Burst,
		CacheTTL: cfg.CacheTTL,
	}
	if cfg.CacheEnabled() {
		cache, err := a.openCache(ctx, cfg.CacheDBPath)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Cache = cache
		opts.Cache = cache
		logger.Info("response cache enabled", "path", cfg.CacheDBPath, "ttl", cfg.CacheTTL)
	}

	store, err := export.OpenStore(ctx, cfg.Export)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open export sink: %w", err)
	}

	a.Selection = selection.NewService(cat, logger.With("component", "selection"))
	a.Client = sdmx.NewClient(opts, logger.With("component", "sdmx"))
	a.Store = session.NewStore()
	a.Exporter = export.NewExporter(store, cfg.Export.Parquet, logger.With("component", "export"))
	a.Explore = explore.NewService(a.Selection, a.Client, a.Store, a.Exporter, logger.With("component", "explore"))
	return a, nil
}

func (a *App) openCache(ctx context.Context, path string) (*repository.ResponseCacheRepo, error) {
	writeDB, readDB, err := internaldb.OpenSQLitePair(path, 4)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	a.closers = append(a.closers, readDB.Close, writeDB.Close)
	if err := internaldb.RunMigrations(ctx, writeDB); err != nil {
		return nil, fmt.Errorf("migrate cache: %w", err)
	}
	return repository.NewResponseCacheRepo(writeDB, readDB), nil
}

// OpenCache opens the response cache at path without wiring the rest of the app.
func OpenCache(ctx context.Context, path string) (*repository.ResponseCacheRepo, func() error, error) {
	a := &App{}
	cache, err := a.openCache(ctx, path)
	if err != nil {
		_ = a.Close()
		return nil, nil, err
	}
	return cache, a.Close, nil
}

// Scheduler returns a scheduler carrying the refresh-and-export job, or nil
// when no schedule is configured.
func (a *App) Scheduler(cfg *config.Config) (*schedule.Scheduler, error) {
	if cfg.Export.Schedule == "" {
		return nil, nil
	}
	s := schedule.NewScheduler(a.logger.With("component", "scheduler"))
	err := s.Reload(schedule.Job{
		Name:     RefreshJobName,
		Schedule: cfg.Export.Schedule,
		Run:      a.Explore.RefreshAndExport,
		Timeout:  cfg.SDMX.Timeout * 10,
	})
	if err != nil {
		s.Stop()
		return nil, fmt.Errorf("schedule export: %w", err)
	}
	return s, nil
}

// Close releases the cache databases.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
