package webhook

import (
	"context"
	"errors"
	"time"

	"revive_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

const dedupeKeyPrefix = "revive:webhook:"

// DeliveryStore is the durable claim store used when Redis is not available.
type DeliveryStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Deduper detects repeated deliveries of the same provider event inside a short window.
type Deduper struct {
	redis *redis.Client
	store DeliveryStore
	ttl   time.Duration
	log   *logger.Logger
}

// NewDeduper accepts a nil Redis client or a nil store, not both.
func NewDeduper(rdb *redis.Client, store DeliveryStore, ttl time.Duration, log *logger.Logger) *Deduper {
	return &Deduper{redis: rdb, store: store, ttl: ttl, log: log}
}

// Claim reports whether this is the first delivery of key. On storage failure it
// returns true together with the error so the caller processes the event anyway.
func (d *Deduper) Claim(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}

	var redisErr error
	if d.redis != nil {
		first, err := d.redis.SetNX(ctx, dedupeKeyPrefix+key, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
		if err == nil {
			return first, nil
		}
		redisErr = err
		d.log.WithContext(ctx).Warn("redis dedupe unavailable, falling back to database", "error", err)
	}

	if d.store == nil {
		return true, redisErr
	}
	first, err := d.store.Claim(ctx, key, d.ttl)
	if err != nil {
		return true, errors.Join(redisErr, err)
	}
	return first, nil
}
