// Package webhook reconciles voice provider events with lead state and the calendar.
package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository records webhook deliveries in Postgres. It backs the deduper when Redis
// is unavailable and is purged by the scheduler.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Claim inserts key with the given retention. It reports false when an unexpired row
// already holds the key. Expired rows are taken over.
func (r *Repository) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	var claimed string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO webhook_deliveries (dedupe_key, received_at, expires_at)
		VALUES ($1, now(), now() + make_interval(secs => $2))
		ON CONFLICT (dedupe_key) DO UPDATE SET
			received_at = EXCLUDED.received_at,
			expires_at = EXCLUDED.expires_at
		WHERE webhook_deliveries.expires_at <= now()
		RETURNING dedupe_key
	`, key, ttl.Seconds()).Scan(&claimed)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PurgeExpired deletes deliveries whose retention ended before the given time.
func (r *Repository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM webhook_deliveries WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
