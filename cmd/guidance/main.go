package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/night-sky-guidance-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/night-sky-guidance-service/internal/adapter/kafka"
	"github.com/couchcryptid/night-sky-guidance-service/internal/adapter/meeus"
	"github.com/couchcryptid/night-sky-guidance-service/internal/adapter/openmeteo"
	tzfadapter "github.com/couchcryptid/night-sky-guidance-service/internal/adapter/tzf"
	"github.com/couchcryptid/night-sky-guidance-service/internal/catalog"
	"github.com/couchcryptid/night-sky-guidance-service/internal/config"
	"github.com/couchcryptid/night-sky-guidance-service/internal/domain"
	"github.com/couchcryptid/night-sky-guidance-service/internal/observability"
	"github.com/couchcryptid/night-sky-guidance-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	objects, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Error("failed to load catalog", "error", err, "path", cfg.CatalogPath)
		os.Exit(1)
	}
	logger.Info("catalog loaded", "path", cfg.CatalogPath, "objects", len(objects))

	zones, err := tzfadapter.NewLocator()
	if err != nil {
		logger.Error("failed to initialize timezone locator", "error", err)
		os.Exit(1)
	}
	engine := domain.NewEngine(meeus.New(), zones)

	client := openmeteo.NewClient(cfg.WeatherBaseURL, cfg.WeatherTimeout, metrics, logger)
	weather := openmeteo.NewCachedProvider(client, cfg.WeatherCacheSize, metrics)
	logger.Info("weather lookups enabled", "cache_size", cfg.WeatherCacheSize, "timeout", cfg.WeatherTimeout)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	assessor := pipeline.NewAssessor(engine, objects, weather, logger, metrics)

	p := pipeline.New(reader, assessor, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start ops HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start assessment pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
