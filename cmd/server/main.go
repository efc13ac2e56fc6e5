package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kopilka-app/kopilka/internal/config"
	"github.com/kopilka-app/kopilka/internal/server"
	"github.com/kopilka-app/kopilka/internal/server/security"
	"github.com/kopilka-app/kopilka/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kopilka-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg)
	logger.Info("starting kopilka server", "version", Version, "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	audit, err := security.NewAuditStore(cfg.AuditLogPath)
	if err != nil {
		return fmt.Errorf("failed to open audit store: %w", err)
	}
	defer func() {
		if err := audit.Close(); err != nil {
			logger.Error("failed to close audit store", "error", err)
		}
	}()

	srv, err := server.New(cfg, logger, store, audit, Version)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}

// newLogger настраивает slog: JSON в production, text в development
func newLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.New(handler)
}

func printVersion() {
	fmt.Printf("Kopilka Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
