// Package main is the entry point for the fishcast API server.
//
// It loads configuration, builds the channel adapters and the aggregation,
// scoring, caching, and forecast services, mounts the HTTP routes on the core
// chassis, and serves until a shutdown signal arrives.
//
// The PostgreSQL-backed forecast cache is optional: when DATABASE_URL is
// empty the service starts with the cache disabled and recomputes every
// request.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fishcast/internal/aggregator"
	"fishcast/internal/api/handlers"
	"fishcast/internal/cache"
	"fishcast/internal/config"
	"fishcast/internal/core"
	"fishcast/internal/external"
	"fishcast/internal/forecasts"
	"fishcast/internal/scoring"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main() can cleanly exit on error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("fishcast API starting",
		"environment", cfg.Environment,
		"service", cfg.Service,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()

	// Optional cache store. An empty DATABASE_URL runs the cache disabled.
	var (
		pool      *pgxpool.Pool
		cacheRepo *cache.Repository
	)
	if url := cfg.Database.URL.Unmask(); url != "" {
		pool, err = newPool(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connecting cache store: %w", err)
		}
		defer pool.Close()
		cacheRepo = cache.NewRepository(pool)
	}
	cacheSvc := cache.NewService(cacheRepo, logger,
		cache.WithDefaultTTL(cfg.Cache.DefaultTTL),
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
	)

	// Channel adapters, one breaker per channel.
	weather := external.NewOpenMeteoWeather(
		external.NewBaseClient(nil, "weather", cfg.Weather.Timeout),
		cfg.Weather.BaseURL, logger,
	)
	marine := external.NewOpenMeteoMarine(
		external.NewBaseClient(nil, "marine", cfg.Marine.Timeout),
		cfg.Marine.BaseURL, logger,
	)
	tide := external.NewTideAuthority(
		external.NewBaseClient(nil, "tide", cfg.Tide.Timeout),
		cfg.Tide.BaseURL, logger,
	)
	enrichment := external.NewEnrichmentClient(
		external.NewBaseClient(nil, "enrichment", cfg.Enrichment.Timeout),
		cfg.Enrichment.BaseURL, cfg.Enrichment.APIKey.Unmask(), logger,
	)

	agg := aggregator.New(weather, marine, tide, enrichment, logger)
	forecastSvc := forecasts.NewService(agg, scoring.NewRegistry(), cacheSvc, logger, forecasts.Settings{
		DefaultDays:     cfg.Weather.ForecastDays,
		TideStationCode: cfg.Tide.StationCode,
		TideMaxRadiusKm: cfg.Tide.MaxRadiusKm,
	})

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	if pool != nil {
		srv.HealthProbes = append(srv.HealthProbes, &poolProbe{pool: pool})
	}

	forecastHandler := handlers.NewForecastHandler(forecastSvc, logger)
	srv.Router().Route("/v1", func(r chi.Router) {
		r.Get("/health", srv.HandleHealth)
		forecastHandler.RegisterRoutes(r)
	})

	return serve(srv, cfg, logger)
}

// newPool builds the pgx connection pool from the database settings.
func newPool(ctx context.Context, dbCfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dbCfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	poolCfg.MaxConns = int32(dbCfg.MaxConns)
	poolCfg.MinConns = int32(dbCfg.MinConns)
	poolCfg.MaxConnLifetime = dbCfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = dbCfg.HealthCheckPeriod
	poolCfg.ConnConfig.ConnectTimeout = dbCfg.AcquireTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	return pool, nil
}

// serve runs the HTTP server until a shutdown signal or server error.
func serve(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// poolProbe reports cache-store health via a pool ping.
type poolProbe struct {
	pool *pgxpool.Pool
}

func (p *poolProbe) Name() string { return "database" }

func (p *poolProbe) Check(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// newLogger creates the structured JSON logger at the configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
