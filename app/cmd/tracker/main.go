package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jobtracker/app/config"
	"jobtracker/app/usecase"
	"jobtracker/internal/infrastructure/metrics"
	"jobtracker/internal/infrastructure/store"
	"jobtracker/internal/infrastructure/transport"
)

func main() {
	// logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// load config
	config.LoadDotEnv()
	cfg, err := config.Load("")
	if err != nil {
		logger.Error("load config failed", "err", err)
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Repository
	openCtx, openCancel := context.WithTimeout(ctx, 30*time.Second)
	jobRepo, closeRepo, err := store.Open(openCtx, cfg.Storage, logger)
	openCancel()
	if err != nil {
		logger.Error("open repository failed", "backend", cfg.Storage.Backend, "err", err)
		log.Fatalf("open repository: %v", err)
	}

	// Usecases / services
	jobSvc, err := usecase.NewJobService(ctx, jobRepo, &usecase.DefaultClock{}, logger)
	if err != nil {
		logger.Error("initial load failed", "err", err)
		log.Fatalf("load jobs: %v", err)
	}

	reporter := usecase.NewSummaryReporter(jobSvc, cfg.Reporter.Interval, logger)
	reporter.Start(ctx) // фоновый воркер

	// Transport (HTTP handlers)
	hub := transport.NewHub(logger)
	jobSvc.OnChange(hub.Broadcast)
	handler := transport.NewTrackerHandler(jobSvc, hub, &usecase.DefaultClock{}, nil, logger)

	// Router and server
	r := mux.NewRouter()
	handler.RegisterRoutes(r)
	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", transport.RequestIDHeader}),
		handlers.ExposedHeaders([]string{transport.RequestIDHeader}),
	)(r)

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      corsHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			logger.Info("starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metrics.StartMetricsServer(cfg.Metrics.Addr); err != nil {
				logger.Error("metrics server failed", "err", err)
			}
		}()
	}

	// Start HTTP server
	go func() {
		logger.Info("starting HTTP server", "addr", addr, "backend", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "err", err)
			cancel()
		}
	}()

	// OS signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	// Shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}

	reporter.Stop()

	logger.Info("closing repository", "backend", cfg.Storage.Backend)
	if err := closeRepo(shutdownCtx); err != nil {
		logger.Error("repository close error", "err", err)
	}

	logger.Info("service stopped")
}
