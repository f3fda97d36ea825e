// Command domheal is the DOM snapshot store and locator healing service.
//
// Usage:
//
//	domheal -config domheal.yaml           # run with config file
//	domheal -db domheal.db                 # run with defaults
//	domheal -db domheal.db -addr :8700     # serve the HTTP API
//	domheal -db domheal.db -cleanup        # sweep once and exit
//	domheal -db domheal.db -stats          # show stats and exit
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domheal"
)

func main() {
	configPath := flag.String("config", "", "path to domheal.yaml config file")
	dbPath := flag.String("db", "", "path to SQLite database")
	addr := flag.String("addr", ":8700", "HTTP listen address")
	runCleanup := flag.Bool("cleanup", false, "run retention sweep and exit")
	showStats := flag.Bool("stats", false, "show stats and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *dbPath, *addr, *runCleanup, *showStats); err != nil {
		logger.Error("domheal: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, dbPath, addr string, runCleanup, showStats bool) error {
	cfg, err := resolveConfig(configPath, dbPath)
	if err != nil {
		return err
	}

	h, err := domheal.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer h.Close()

	// One-shot: retention sweep.
	if runCleanup {
		res, err := h.CleanupExpired(ctx)
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	// One-shot: stats.
	if showStats {
		stats, err := h.Stats(ctx)
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	// Daemon mode.
	h.Start(ctx)

	r := chi.NewRouter()
	h.RegisterHTTP(r)
	srv := &http.Server{Addr: addr, Handler: r}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("domheal: serving", "addr", addr, "db", cfg.DBPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("domheal: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func resolveConfig(configPath, dbPath string) (*domheal.Config, error) {
	if configPath != "" {
		return domheal.LoadConfigFile(configPath)
	}

	cfg := &domheal.Config{}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	if cfg.DBPath == "" {
		fmt.Fprintln(os.Stderr, "usage: domheal -config <file> | -db <path> [-addr <addr>] [-cleanup] [-stats]")
		os.Exit(1)
	}
	return cfg, nil
}
