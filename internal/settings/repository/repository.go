package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("settings not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Settings is one tenant's configuration row. Absent values are nil.
type Settings struct {
	TenantID            uuid.UUID
	VapiPrivateKey      *string
	VapiPublicKey       *string
	VapiAssistantID     *string
	VapiPhoneNumberID   *string
	CalendarEmail       *string
	BusinessName        *string
	BusinessIndustry    *string
	AgentName           *string
	AgentRole           *string
	BusinessHoursStart  *string
	BusinessHoursEnd    *string
	AvgAppointmentValue *float64
	CancellationPolicy  *string
	CustomKnowledge     *string
	UpdatedAt           time.Time
}

// Patch lists the columns to change. Nil fields keep their stored value.
type Patch struct {
	VapiPrivateKey      *string
	VapiPublicKey       *string
	VapiAssistantID     *string
	VapiPhoneNumberID   *string
	CalendarEmail       *string
	BusinessName        *string
	BusinessIndustry    *string
	AgentName           *string
	AgentRole           *string
	BusinessHoursStart  *string
	BusinessHoursEnd    *string
	AvgAppointmentValue *float64
	CancellationPolicy  *string
	CustomKnowledge     *string
}

const settingsColumns = `tenant_id, vapi_private_key, vapi_public_key, vapi_assistant_id, vapi_phone_number_id,
	calendar_email, business_name, business_industry, agent_name, agent_role,
	business_hours_start, business_hours_end, avg_appointment_value::float8, cancellation_policy,
	custom_knowledge, updated_at`

func scanSettings(row pgx.Row) (Settings, error) {
	var s Settings
	err := row.Scan(&s.TenantID, &s.VapiPrivateKey, &s.VapiPublicKey, &s.VapiAssistantID, &s.VapiPhoneNumberID,
		&s.CalendarEmail, &s.BusinessName, &s.BusinessIndustry, &s.AgentName, &s.AgentRole,
		&s.BusinessHoursStart, &s.BusinessHoursEnd, &s.AvgAppointmentValue, &s.CancellationPolicy,
		&s.CustomKnowledge, &s.UpdatedAt)
	return s, err
}

func (r *Repository) Get(ctx context.Context, tenantID uuid.UUID) (Settings, error) {
	s, err := scanSettings(r.pool.QueryRow(ctx, `SELECT `+settingsColumns+` FROM tenant_settings WHERE tenant_id = $1`, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, ErrNotFound
	}
	return s, err
}

// Upsert applies a partial update, creating the row on first write.
func (r *Repository) Upsert(ctx context.Context, tenantID uuid.UUID, p Patch) (Settings, error) {
	return scanSettings(r.pool.QueryRow(ctx, `
		INSERT INTO tenant_settings (
			tenant_id, vapi_private_key, vapi_public_key, vapi_assistant_id, vapi_phone_number_id,
			calendar_email, business_name, business_industry, agent_name, agent_role,
			business_hours_start, business_hours_end, avg_appointment_value, cancellation_policy, custom_knowledge
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (tenant_id) DO UPDATE SET
			vapi_private_key = COALESCE(EXCLUDED.vapi_private_key, tenant_settings.vapi_private_key),
			vapi_public_key = COALESCE(EXCLUDED.vapi_public_key, tenant_settings.vapi_public_key),
			vapi_assistant_id = COALESCE(EXCLUDED.vapi_assistant_id, tenant_settings.vapi_assistant_id),
			vapi_phone_number_id = COALESCE(EXCLUDED.vapi_phone_number_id, tenant_settings.vapi_phone_number_id),
			calendar_email = COALESCE(EXCLUDED.calendar_email, tenant_settings.calendar_email),
			business_name = COALESCE(EXCLUDED.business_name, tenant_settings.business_name),
			business_industry = COALESCE(EXCLUDED.business_industry, tenant_settings.business_industry),
			agent_name = COALESCE(EXCLUDED.agent_name, tenant_settings.agent_name),
			agent_role = COALESCE(EXCLUDED.agent_role, tenant_settings.agent_role),
			business_hours_start = COALESCE(EXCLUDED.business_hours_start, tenant_settings.business_hours_start),
			business_hours_end = COALESCE(EXCLUDED.business_hours_end, tenant_settings.business_hours_end),
			avg_appointment_value = COALESCE(EXCLUDED.avg_appointment_value, tenant_settings.avg_appointment_value),
			cancellation_policy = COALESCE(EXCLUDED.cancellation_policy, tenant_settings.cancellation_policy),
			custom_knowledge = COALESCE(EXCLUDED.custom_knowledge, tenant_settings.custom_knowledge),
			updated_at = now()
		RETURNING `+settingsColumns,
		tenantID, p.VapiPrivateKey, p.VapiPublicKey, p.VapiAssistantID, p.VapiPhoneNumberID,
		p.CalendarEmail, p.BusinessName, p.BusinessIndustry, p.AgentName, p.AgentRole,
		p.BusinessHoursStart, p.BusinessHoursEnd, p.AvgAppointmentValue, p.CancellationPolicy, p.CustomKnowledge,
	))
}

// ResetTenant removes the tenant's leads (and through them the calendar links) and
// its settings in one transaction.
func (r *Repository) ResetTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var deleted int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM leads WHERE tenant_id = $1`, tenantID)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		_, err = tx.Exec(ctx, `DELETE FROM tenant_settings WHERE tenant_id = $1`, tenantID)
		return err
	})
	return deleted, err
}
