// Package repository stores the lead to calendar event mapping so reschedules can
// patch the right event without searching the calendar.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("event link not found")

type EventLink struct {
	TenantID        uuid.UUID
	LeadID          uuid.UUID
	ExternalEventID string
	HTMLLink        string
	StartsAt        time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Get(ctx context.Context, tenantID, leadID uuid.UUID) (EventLink, error) {
	var link EventLink
	var htmlLink *string
	err := r.pool.QueryRow(ctx, `
		SELECT tenant_id, lead_id, external_event_id, html_link, starts_at
		FROM calendar_event_links
		WHERE tenant_id = $1 AND lead_id = $2
	`, tenantID, leadID).Scan(&link.TenantID, &link.LeadID, &link.ExternalEventID, &htmlLink, &link.StartsAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return EventLink{}, ErrNotFound
	}
	if err != nil {
		return EventLink{}, err
	}
	if htmlLink != nil {
		link.HTMLLink = *htmlLink
	}
	return link, nil
}

// Upsert records the event currently booked for a lead, replacing any previous one.
func (r *Repository) Upsert(ctx context.Context, link EventLink) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO calendar_event_links (tenant_id, lead_id, external_event_id, html_link, starts_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		ON CONFLICT (tenant_id, lead_id) DO UPDATE SET
			external_event_id = EXCLUDED.external_event_id,
			html_link = EXCLUDED.html_link,
			starts_at = EXCLUDED.starts_at,
			updated_at = now()
	`, link.TenantID, link.LeadID, link.ExternalEventID, link.HTMLLink, link.StartsAt)
	return err
}
