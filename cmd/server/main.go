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

	"github.com/MartinDM/data-app/internal/config"
	"github.com/MartinDM/data-app/internal/detail"
	"github.com/MartinDM/data-app/internal/generator"
	"github.com/MartinDM/data-app/internal/geocode"
	"github.com/MartinDM/data-app/internal/graph"
	"github.com/MartinDM/data-app/internal/logging"
	"github.com/MartinDM/data-app/internal/metrics"
	"github.com/MartinDM/data-app/internal/repository"
	"github.com/MartinDM/data-app/internal/server"
	"github.com/MartinDM/data-app/internal/service"
	"github.com/MartinDM/data-app/internal/view"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	m := metrics.New()

	engine := view.NewEngine(view.Options{
		PageSize: cfg.Dataset.PageSize,
		Logger:   logger,
		Observer: m,
	})

	resolver, closeCache := buildResolver(ctx, logger, cfg)
	defer closeCache()

	details := detail.NewManager(engine, resolver, detail.Options{
		Timeout:  cfg.Geocode.Timeout,
		TTL:      cfg.Detail.ViewTTL,
		MaxViews: cfg.Detail.MaxViews,
		Logger:   logger,
		Observer: m,
	})
	defer details.Close()

	graphClient, err := buildGraphClient(ctx, cfg)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if graphClient != nil {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}
	}()

	var exporter service.SnapshotExporter
	if graphClient != nil {
		repo := repository.New(graphClient)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Warn("graph schema setup failed", "error", err)
		}
		exporter = service.NewBatchExporter(repo, cfg.Graph.Workers, cfg.Graph.BatchSize, logger)
	}

	gen := generator.New(generator.Config{Seed: cfg.Dataset.Seed})
	dashboard := service.NewDashboardService(gen, engine, service.DashboardOptions{
		Size:     cfg.Dataset.Size,
		Exporter: exporter,
		Observer: m,
		Logger:   logger,
	})
	if _, err := dashboard.Refresh(ctx); err != nil {
		logger.Error("initial dataset generation failed", "error", err)
		os.Exit(1)
	}

	stream := server.NewStreamHub(logger, engine, m.StreamClients, cfg.HTTP.AllowedOrigins)
	defer stream.Close()

	deps := server.RouterDependencies{
		Health: server.HealthChecks{
			"graph":   server.GraphHealthService{Client: graphClient},
			"dataset": server.DatasetHealthService{Ready: func() bool { return engine.Snapshot().Len() > 0 }},
		},
		API:              server.NewAPIHandlers(logger, engine, dashboard, details),
		Stream:           stream,
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowCredentials: true,
	}
	if cfg.HTTP.MetricsEnabled {
		deps.Metrics = m.Handler()
		deps.MetricsMW = m.Middleware
	}

	srv := server.New(logger, cfg.HTTP, server.NewRouter(logger, deps))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	stream.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// buildResolver returns the Mapbox resolver, fronted by Redis when REDIS_URL
// is set. The returned func releases the cache.
func buildResolver(ctx context.Context, logger *slog.Logger, cfg config.Config) (geocode.Resolver, func()) {
	mapbox := geocode.NewMapboxClient(geocode.MapboxOptions{
		BaseURL:     cfg.Geocode.BaseURL,
		AccessToken: cfg.Geocode.AccessToken,
		Timeout:     cfg.Geocode.Timeout,
		Logger:      logger,
	})
	if cfg.Geocode.AccessToken == "" {
		logger.Warn("MAPBOX_ACCESS_TOKEN not set; addresses will be unavailable")
	}
	if cfg.Cache.RedisURL == "" {
		return mapbox, func() {}
	}

	cache, err := geocode.NewRedisCache(ctx, cfg.Cache.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, geocode cache disabled", "error", err)
		return mapbox, func() {}
	}
	closeFn := func() {
		if err := cache.Close(); err != nil {
			logger.Warn("closing redis failed", "error", err)
		}
	}
	return geocode.NewCachedResolver(mapbox, cache, cfg.Cache.TTL, logger), closeFn
}

// buildGraphClient connects to the graph store, or returns nil when export is
// not configured.
func buildGraphClient(ctx context.Context, cfg config.Config) (graph.Client, error) {
	if !cfg.Graph.Enabled() {
		return nil, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return graph.NewNeo4jClient(connectCtx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
}
