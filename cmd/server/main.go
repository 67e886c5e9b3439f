package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/FeedConvert/internal/config"
	"github.com/JonMunkholm/FeedConvert/internal/history"
	"github.com/JonMunkholm/FeedConvert/internal/logging"
	"github.com/JonMunkholm/FeedConvert/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"workers", cfg.Convert.Workers,
		"max_concurrent", cfg.Convert.MaxConcurrent,
		"history_enabled", cfg.HistoryEnabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Connect the optional run-history store
	var recorder web.RunRecorder
	if cfg.HistoryEnabled() {
		store, err := history.Connect(context.Background(), cfg.History.URL,
			cfg.History.MaxConns, cfg.History.MinConns)
		if err != nil {
			slog.Error("failed to connect history database", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		recorder = store
		slog.Info("history store connected")
	}

	server := web.NewServer(cfg, recorder)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
