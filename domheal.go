// Package domheal is a DOM-snapshot store with a locator-healing engine.
//
// It persists compressed, deduplicated structural snapshots of web pages
// keyed by normalized URL, keeps a bounded time-bucketed history per URL,
// and uses that history (or a caller-supplied current DOM) to repair broken
// UI-test locators, ranking replacement candidates by confidence.
//
// Usage:
//
//	h, err := domheal.New(cfg, logger)
//	defer h.Close()
//	h.Start(ctx)                       // periodic retention sweep
//	h.SaveSnapshot(ctx, capture)       // plug into the recorder
//	res, err := h.Heal(ctx, request)   // repair a broken locator
//	h.RegisterHTTP(router)
//	h.RegisterMCP(mcpServer)
package domheal

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/domheal/internal/schedule"
	"github.com/hazyhaar/domheal/internal/store"
)

// Healer is the main domheal orchestrator.
type Healer struct {
	store   *store.Store
	sweeper *schedule.Sweeper
	logger  *slog.Logger
	config  *Config
}

// New creates a Healer instance. Opens the SQLite database and initialises
// the retention sweeper.
func New(cfg *Config, logger *slog.Logger) (*Healer, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	s, err := store.Open(cfg.DBPath, store.RetentionPolicy{
		IntervalDays:  cfg.Retention.IntervalDays,
		MaxPeriods:    cfg.Retention.MaxPeriods,
		RetentionDays: cfg.Retention.RetentionDays,
	})
	if err != nil {
		return nil, err
	}

	sweeper := schedule.New(s, schedule.Config{
		CleanupInterval: cfg.Retention.CleanupInterval,
	}, logger)

	return &Healer{
		store:   s,
		sweeper: sweeper,
		logger:  logger,
		config:  cfg,
	}, nil
}

// Start launches the background retention sweep.
func (h *Healer) Start(ctx context.Context) {
	go h.sweeper.Run(ctx)
	h.logger.Info("domheal: started", "db", h.config.DBPath)
}

// Close shuts down the healer and closes the database.
func (h *Healer) Close() error {
	return h.store.Close()
}

// Store returns the underlying store for direct access (testing, admin).
func (h *Healer) Store() *store.Store {
	return h.store
}

// SaveSnapshot persists a structural capture subject to dedup and retention.
func (h *Healer) SaveSnapshot(ctx context.Context, in store.SaveInput) (*store.SaveResult, error) {
	return h.store.Save(ctx, in)
}

// LatestSnapshot returns the newest non-expired snapshot for a URL, or nil.
func (h *Healer) LatestSnapshot(ctx context.Context, url string) (*store.Snapshot, error) {
	return h.store.Latest(ctx, url)
}

// RecentSnapshots returns up to limit full snapshots for a URL, newest first.
func (h *Healer) RecentSnapshots(ctx context.Context, url string, limit int) ([]*store.Snapshot, error) {
	return h.store.Recent(ctx, url, limit)
}

// SnapshotHistory returns payload-free snapshot summaries for a URL.
func (h *Healer) SnapshotHistory(ctx context.Context, url string, limit int) ([]*store.Snapshot, error) {
	return h.store.History(ctx, url, limit)
}

// CleanupExpired runs one retention sweep immediately.
func (h *Healer) CleanupExpired(ctx context.Context) (*store.CleanupResult, error) {
	return h.store.CleanupExpired(ctx)
}

// Stats summarises the stored snapshots and healing records.
func (h *Healer) Stats(ctx context.Context) (*store.Stats, error) {
	return h.store.SnapshotStats(ctx)
}

// RecordHealing persists a healing outcome reported by the caller that
// applied it. The engine never records outcomes on its own.
func (h *Healer) RecordHealing(ctx context.Context, r *store.HealingRecord) error {
	return h.store.RecordHealing(ctx, r)
}

// HealingHistory returns recorded healing outcomes, newest first.
func (h *Healer) HealingHistory(ctx context.Context, f store.HealingFilter) ([]*store.HealingRecord, error) {
	return h.store.HealingHistory(ctx, f)
}
