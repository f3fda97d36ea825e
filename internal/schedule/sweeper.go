// Package schedule runs the periodic retention sweep over stored snapshots.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/domheal/internal/store"
)

// Config controls the sweeper behaviour.
type Config struct {
	// CleanupInterval is how often the retention sweep runs.
	CleanupInterval time.Duration
}

func (c *Config) defaults() {
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 24 * time.Hour
	}
}

// Sweeper periodically enforces the snapshot retention policy.
type Sweeper struct {
	store  *store.Store
	config Config
	logger *slog.Logger
}

// New creates a retention sweeper.
func New(s *store.Store, cfg Config, logger *slog.Logger) *Sweeper {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: s, config: cfg, logger: logger}
}

// Run starts the sweep loop. A sweep runs immediately on start and then at
// every CleanupInterval. Blocks until ctx is cancelled. A failed sweep is
// logged and retried at the next tick, never fatal.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("sweeper: started", "cleanup_interval", s.config.CleanupInterval)

	s.sweep(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper: stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	res, err := s.store.CleanupExpired(ctx)
	if err != nil {
		s.logger.Warn("sweeper: cleanup failed", "error", err)
		return
	}
	if res.Expired > 0 || res.Displaced > 0 {
		s.logger.Info("sweeper: cleanup done",
			"expired", res.Expired, "displaced", res.Displaced)
	}
}
