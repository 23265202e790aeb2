package scheduler

import (
	"context"
	"time"

	"revive_backend/platform/logger"
)

const defaultDedupeCleanupInterval = 10 * time.Minute

// DedupePurger removes webhook delivery claims that expired before the given time.
type DedupePurger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// DedupeCleanup periodically trims the Postgres webhook dedupe table.
type DedupeCleanup struct {
	purger   DedupePurger
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time
}

func NewDedupeCleanup(purger DedupePurger, log *logger.Logger, interval time.Duration) *DedupeCleanup {
	if interval <= 0 {
		interval = defaultDedupeCleanupInterval
	}
	return &DedupeCleanup{
		purger:   purger,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

func (c *DedupeCleanup) Run(ctx context.Context) {
	if c == nil || c.purger == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *DedupeCleanup) cleanup(ctx context.Context) {
	deleted, err := c.purger.PurgeExpired(ctx, c.now())
	if err != nil {
		c.log.Warn("webhook dedupe cleanup failed", "error", err)
		return
	}

	if deleted > 0 {
		c.log.Info("webhook dedupe cleanup removed expired claims", "deleted", deleted)
	}
}
