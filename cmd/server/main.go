// Loan assistant chat server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/loanbot/internal/api"
	"github.com/ashureev/loanbot/internal/backend"
	"github.com/ashureev/loanbot/internal/chatws"
	"github.com/ashureev/loanbot/internal/config"
	"github.com/ashureev/loanbot/internal/conversation"
	"github.com/ashureev/loanbot/internal/health"
	"github.com/ashureev/loanbot/internal/identity"
	"github.com/ashureev/loanbot/internal/middleware"
	"github.com/ashureev/loanbot/internal/observability"
	"github.com/ashureev/loanbot/internal/sessions"
	"github.com/ashureev/loanbot/web"
)

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

	slog.Info("Starting chat server", "port", cfg.Server.Port, "dev", cfg.IsDevelopment(), "backend", cfg.Backend.BaseURL)
	if cfg.Conversation.ExposeOTP {
		slog.Warn("Issued OTPs are echoed in replies; do not enable outside testing")
	}

	bank := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bank.Ping(ctx); err != nil {
		slog.Warn("Bank backend not reachable yet", "error", err)
	}

	store := sessions.NewStore(sessions.Config{
		TTL:         cfg.Sessions.TTL,
		MaxSessions: cfg.Sessions.MaxSessions,
		Factory: func(key string) sessions.Conversation {
			return conversation.New(bank, bank, conversation.Options{
				MaxOTPRetries: cfg.Conversation.MaxOTPRetries,
				CSATURL:       cfg.Conversation.CSATURL,
				ExposeOTP:     cfg.Conversation.ExposeOTP,
				OTPAllowList:  cfg.Conversation.OTPAllowList,
				Logger:        logger.With("session_key", key),
			})
		},
	})
	store.StartSweeper(ctx, cfg.Sessions.SweepInterval)

	signer, err := identity.NewSigner(cfg.Sessions.Secret)
	if err != nil {
		slog.Error("Failed to initialize session signer", "error", err)
		os.Exit(1)
	}

	limiter := api.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	limiter.StartEviction(ctx)

	chatHandler := api.NewChatHandler(store, limiter, api.ChatConfig{
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.Server.RequestTimeout,
		CSATURL:        cfg.Conversation.CSATURL,
		ExposeOTP:      cfg.Conversation.ExposeOTP,
	}, logger)
	wsHandler := chatws.NewHandler(chatHandler, cfg.Server.AllowedOrigins, cfg.IsDevelopment())

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(observability.MetricsMiddleware)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	r.Handle("/metrics", observability.Handler())

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(signer, cfg.IsDevelopment()))
		chatHandler.RegisterRoutes(r)
		r.Get("/ws/chat", wsHandler.ServeHTTP)
	})

	r.Handle("/*", web.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket connections are long-lived
		IdleTimeout:  120 * time.Second,
	}

	if cfg.Server.HealthPort != "" {
		hs, err := health.New(":"+cfg.Server.HealthPort, 0, health.Probe{
			Service: "loanbot.BankBackend",
			Check:   bank.Ping,
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
		slog.Info("Server listening", "addr", srv.Addr)
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

	slog.Info("Server stopped successfully")
}
