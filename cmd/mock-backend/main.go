// Mock bank backend serving OTP issuance and loan account fixtures.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/loanbot/internal/backend"
	"github.com/ashureev/loanbot/internal/config"
	"github.com/ashureev/loanbot/internal/health"
	"github.com/ashureev/loanbot/internal/mockbank"
	"github.com/ashureev/loanbot/internal/observability"
	"github.com/ashureev/loanbot/internal/store"
)

const pruneInterval = time.Hour

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if dir := filepath.Dir(cfg.Mock.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("Failed to create data directory", "error", err)
			os.Exit(1)
		}
	}

	repo, err := store.NewSQLite(cfg.Mock.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	if err := repo.SeedAccounts(ctx, mockbank.FixtureAccounts(), mockbank.FixtureDetails()); err != nil {
		slog.Error("Failed to seed fixtures", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", cfg.Mock.DBPath)

	mockbank.StartPruneWorker(ctx, repo, pruneInterval, cfg.Mock.OTPRetention)

	bank := mockbank.NewHandler(repo, cfg.Mock.APIKey, cfg.Mock.OTPCodes, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(observability.MetricsMiddleware)
	r.Use(chiMiddleware.Heartbeat(backend.PathHealth))

	r.Handle("/metrics", observability.Handler())
	bank.RegisterRoutes(r)
	r.NotFound(mockbank.NotFound)

	srv := &http.Server{
		Addr:         ":" + cfg.Mock.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.Mock.HealthPort != "" {
		hs, err := health.New(":"+cfg.Mock.HealthPort, 0, health.Probe{
			Service: "loanbot.MockBankStore",
			Check:   repo.Ping,
		})
		if err != nil {
			slog.Error("Failed to start health server", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := hs.Serve(ctx); err != nil {
				slog.Error("Health server failed", "error", err)
			}
		}()
	}

	go func() {
		slog.Info("Mock bank listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Mock bank stopped")
}
