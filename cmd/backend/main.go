package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	configloader "github.com/foxseedlab/shuchurin/external/config"
	repositoryimpl "github.com/foxseedlab/shuchurin/external/repository"
	"github.com/foxseedlab/shuchurin/external/server"
	webhookimpl "github.com/foxseedlab/shuchurin/external/webhook"
	"github.com/foxseedlab/shuchurin/internal/config"
	"github.com/foxseedlab/shuchurin/internal/stream"
	"github.com/samber/do/v2"
)

const shutdownTimeout = 10 * time.Second

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching http server")
	runServer(injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	stream.RegisterDI(injector)
	server.RegisterDI(injector)

	return injector
}

func runServer(injector do.Injector) {
	srv, err := do.Invoke[*server.Server](injector)
	if err != nil {
		slog.Error("failed to resolve server", "error", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			slog.Error("server run failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
		return
	}

	// Shutdown closes live stream connections so open sessions are
	// abandoned and their accumulated time persisted before exit.
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
	<-done
}
