// Package server assembles the HTTP router and runs the explorer UI.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"sdmx-explorer/internal/app"
	"sdmx-explorer/internal/config"
	"sdmx-explorer/internal/middleware"
	"sdmx-explorer/internal/ui"
)

// NewRouter builds the chi router with the middleware stack and UI routes.
// The rate limiter's idle sweep stops when ctx is cancelled.
func NewRouter(ctx context.Context, cfg *config.Config, a *app.App, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger.With("component", "http")))
	r.Use(middleware.NewRateLimiter(ctx, middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}).Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token", middleware.HeaderRequestID},
		ExposedHeaders:   []string{middleware.HeaderRequestID},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	ui.MountRoutes(r, ui.NewHandler(a.Explore, cfg.IsProduction(), logger.With("component", "ui")))
	return r
}

// Run serves the UI until ctx is cancelled, then shuts down gracefully. The
// scheduled export, when configured, runs for the lifetime of the server.
func Run(ctx context.Context, cfg *config.Config, a *app.App, logger *slog.Logger) error {
	sched, err := a.Scheduler(cfg)
	if err != nil {
		return err
	}
	if sched != nil {
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           NewRouter(ctx, cfg, a, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("explorer listening", "addr", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
