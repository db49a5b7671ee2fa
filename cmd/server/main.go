package main

import (
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/relaychat/relaychat/internal/config"
	"github.com/relaychat/relaychat/internal/logging"
	"github.com/relaychat/relaychat/internal/server"
	"github.com/relaychat/relaychat/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized.
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.Init(cfg.LogLevel, cfg.LogFormat)

	messageStore := setupStore(cfg)
	defer func() {
		if err := messageStore.Close(); err != nil {
			slog.Error("Error closing store", "error", err)
		}
	}()

	hub := server.NewHub()
	mux := server.NewRouter(cfg, hub, messageStore)
	httpServer := server.CreateServer(cfg.ListenAddr(), mux)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.StartServer(httpServer)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-sigChan:
		slog.Info("Shutdown signal received, cleaning up", "signal", sig.String())
	}

	if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	if err := hub.Shutdown(cfg.ShutdownTimeout); err != nil {
		slog.Error("Hub shutdown failed", "error", err)
	}
}

// setupStore selects the message store from configuration: PostgreSQL when a
// database URL is configured, the in-memory store otherwise. A store that
// cannot be initialized is fatal; there is no degraded serving mode.
func setupStore(cfg *config.Config) store.MessageStore {
	if cfg.DatabaseURL == "" {
		slog.Info("Using in-memory message store")
		return store.NewMemory()
	}

	pg, err := store.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to initialize PostgreSQL store", "error", err)
		os.Exit(1)
	}

	slog.Info("Using PostgreSQL message store")
	return pg
}
