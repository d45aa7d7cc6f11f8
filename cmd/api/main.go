package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/user/grant-aggregator/internal/adapter/postgres"
	redis_adapter "github.com/user/grant-aggregator/internal/adapter/redis"
	"github.com/user/grant-aggregator/internal/bootstrap"
	"github.com/user/grant-aggregator/internal/delivery/http/handler"
	"github.com/user/grant-aggregator/internal/delivery/http/router"
	"github.com/user/grant-aggregator/internal/usecase"
	"github.com/user/grant-aggregator/pkg/config"
	"github.com/user/grant-aggregator/pkg/logger"
	"github.com/user/grant-aggregator/pkg/telemetry"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// --- Logger ---
	logLevel := logger.ParseLevel(cfg.LogLevel)
	logger.Init(os.Stdout, logger.Options{Level: logLevel, Format: cfg.LogFormat, Service: cfg.ServiceName + "-api"})
	slog.Info("Logger initialized", "level", logLevel.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName+"-api", cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("Unable to set up tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	// --- Database Connections ---
	dbpool, err := bootstrap.OpenPostgres(ctx, cfg)
	if err != nil {
		slog.Error("PostgreSQL unavailable", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg)
	if err != nil {
		slog.Error("Redis unavailable", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// --- Repositories ---
	grantRepo := postgres.NewGrantRepo(dbpool)
	runLogRepo := postgres.NewRunLogRepo(dbpool)
	queueRepo := redis_adapter.NewQueueRepo(rdb)
	markerRepo := redis_adapter.NewMarkerRepo(rdb)

	// --- Use Cases ---
	grantQuery := usecase.NewGrantQuery(grantRepo)
	syncManager := usecase.NewSyncManager(queueRepo, markerRepo, runLogRepo, cfg.SyncDedupe())

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(grantQuery, syncManager)
	httpRouter := router.New(apiHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting server", "port", cfg.ServerPort)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}
