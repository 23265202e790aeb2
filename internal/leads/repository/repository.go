package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"revive_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Name          string
	Phone         string
	Status        domain.Status
	Notes         *string
	Interest      *string
	LastContacted *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LeadRef is the minimal identity the resolver hands back.
type LeadRef struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Phone    string
}

// UpsertFields carries the columns an upsert on (tenant, phone) writes.
// Nil Notes or Interest keep the stored value on conflict.
type UpsertFields struct {
	Name           string
	Interest       *string
	Notes          *string
	Status         domain.Status
	Cause          domain.Cause
	TouchContacted bool
}

// StatusWrite is a conditional status update. Non-nil Notes are always written; the
// status only moves when the current status is one of AllowedFrom.
type StatusWrite struct {
	To             domain.Status
	Notes          *string
	AllowedFrom    []domain.Status
	TouchContacted bool
}

const leadColumns = `id, tenant_id, name, phone, status, notes, interest, last_contacted, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	var status string
	if err := row.Scan(&l.ID, &l.TenantID, &l.Name, &l.Phone, &status, &l.Notes, &l.Interest, &l.LastContacted, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return Lead{}, err
	}
	l.Status = domain.Status(status)
	return l, nil
}

func statusStrings(statuses []domain.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

const upsertSQL = `
	INSERT INTO leads (tenant_id, phone, name, interest, notes, status, last_contacted)
	VALUES ($1, $2, $3, $4, $5, $6, CASE WHEN $8::boolean THEN now() ELSE NULL END)
	ON CONFLICT ON CONSTRAINT leads_tenant_phone_key DO UPDATE SET
		name = EXCLUDED.name,
		interest = COALESCE(EXCLUDED.interest, leads.interest),
		notes = COALESCE(EXCLUDED.notes, leads.notes),
		status = CASE WHEN leads.status = ANY($7::text[]) THEN EXCLUDED.status ELSE leads.status END,
		last_contacted = CASE WHEN $8::boolean THEN now() ELSE leads.last_contacted END,
		updated_at = now()
	RETURNING ` + leadColumns

// UpsertOnPhone inserts a lead or updates the one already stored under (tenant, phone).
// An existing lead only changes status when the transition table allows it for the cause.
func (r *Repository) UpsertOnPhone(ctx context.Context, tenantID uuid.UUID, phone string, f UpsertFields) (Lead, error) {
	allowed := statusStrings(domain.AllowedSources(f.Status, f.Cause))
	lead, err := scanLead(r.pool.QueryRow(ctx, upsertSQL,
		tenantID, phone, f.Name, f.Interest, f.Notes, string(f.Status), allowed, f.TouchContacted))
	if err != nil {
		return Lead{}, fmt.Errorf("upsert lead: %w", err)
	}
	return lead, nil
}

// UpsertMany runs UpsertOnPhone for every row in a single round trip.
func (r *Repository) UpsertMany(ctx context.Context, tenantID uuid.UUID, rows []UpsertRow) ([]Lead, error) {
	if len(rows) == 0 {
		return []Lead{}, nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		allowed := statusStrings(domain.AllowedSources(row.Fields.Status, row.Fields.Cause))
		batch.Queue(upsertSQL, tenantID, row.Phone, row.Fields.Name, row.Fields.Interest, row.Fields.Notes,
			string(row.Fields.Status), allowed, row.Fields.TouchContacted)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	leads := make([]Lead, 0, len(rows))
	for range rows {
		lead, err := scanLead(results.QueryRow())
		if err != nil {
			return nil, fmt.Errorf("upsert lead batch: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

// UpsertRow is one entry of a bulk upsert.
type UpsertRow struct {
	Phone  string
	Fields UpsertFields
}

// UpdateStatus overwrites status and notes. A nil tenant addresses the lead by id alone.
func (r *Repository) UpdateStatus(ctx context.Context, tenantID *uuid.UUID, leadID uuid.UUID, status domain.Status, notes string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $3, notes = $4, updated_at = now()
		WHERE id = $1 AND ($2::uuid IS NULL OR tenant_id = $2)
	`, leadID, tenantID, string(status), notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetStatus reads the current status of a lead.
func (r *Repository) GetStatus(ctx context.Context, tenantID *uuid.UUID, leadID uuid.UUID) (domain.Status, error) {
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT status FROM leads WHERE id = $1 AND ($2::uuid IS NULL OR tenant_id = $2)
	`, leadID, tenantID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return domain.Status(status), nil
}

// applyStatusSQL locks the row, reads the previous status and lands the new one only
// when the previous status is in $3.
const applyStatusSQL = `
	WITH prev AS (
		SELECT id, status FROM leads
		WHERE id = $1 AND ($2::uuid IS NULL OR tenant_id = $2)
		FOR UPDATE
	)
	UPDATE leads l SET
		status = CASE WHEN c.status = ANY($3::text[]) THEN $4 ELSE c.status END,
		notes = COALESCE($5::text, l.notes),
		last_contacted = CASE WHEN $6::boolean THEN now() ELSE l.last_contacted END,
		updated_at = now()
	FROM prev c
	WHERE l.id = c.id
	RETURNING c.status, l.status`

// ApplyStatus performs the guarded write as one statement and returns the status
// before and after it.
func (r *Repository) ApplyStatus(ctx context.Context, tenantID *uuid.UUID, leadID uuid.UUID, w StatusWrite) (domain.Status, domain.Status, error) {
	var from, to string
	err := r.pool.QueryRow(ctx, applyStatusSQL,
		leadID, tenantID, statusStrings(w.AllowedFrom), string(w.To), w.Notes, w.TouchContacted).Scan(&from, &to)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", err
	}
	return domain.Status(from), domain.Status(to), nil
}

// FindByPhoneExact returns up to two leads whose stored phone equals phone.
func (r *Repository) FindByPhoneExact(ctx context.Context, tenantID *uuid.UUID, phone string) ([]LeadRef, error) {
	return r.findRefs(ctx, `
		SELECT id, tenant_id, phone FROM leads
		WHERE phone = $1 AND ($2::uuid IS NULL OR tenant_id = $2)
		ORDER BY created_at ASC
		LIMIT 2
	`, phone, tenantID)
}

// findByNationalDigitsSQL matches stored phones whose digits end in $1, ignoring
// formatting characters in the stored value.
const findByNationalDigitsSQL = `
	SELECT id, tenant_id, phone FROM leads
	WHERE (phone = $1 OR right(regexp_replace(phone, '\D', '', 'g'), length($1)) = $1)
		AND ($2::uuid IS NULL OR tenant_id = $2)
	ORDER BY created_at ASC
	LIMIT 2`

// FindByNationalDigits returns up to two leads whose stored phone ends in digits.
func (r *Repository) FindByNationalDigits(ctx context.Context, tenantID *uuid.UUID, digits string) ([]LeadRef, error) {
	return r.findRefs(ctx, findByNationalDigitsSQL, digits, tenantID)
}

func (r *Repository) findRefs(ctx context.Context, query string, args ...any) ([]LeadRef, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]LeadRef, 0, 2)
	for rows.Next() {
		var ref LeadRef
		if err := rows.Scan(&ref.ID, &ref.TenantID, &ref.Phone); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, tenantID, leadID uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1 AND tenant_id = $2`, leadID, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// List returns the tenant's leads, newest first. An empty status lists every lead.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, status domain.Status) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE tenant_id = $1 AND ($2::text = '' OR status = $2::text)
		ORDER BY created_at DESC
	`, tenantID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// CountByStatus returns per-status counts for the tenant.
func (r *Repository) CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM leads WHERE tenant_id = $1 GROUP BY status
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int, len(domain.AllStatuses))
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.Status(status)] = n
	}
	return counts, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, tenantID, leadID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1 AND tenant_id = $2`, leadID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every lead of the tenant and returns how many were removed.
func (r *Repository) DeleteAll(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
