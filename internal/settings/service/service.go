package service

import (
	"context"
	"errors"
	"strings"

	"revive_backend/internal/settings/repository"
	"revive_backend/platform/apperr"
	"revive_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	msgConfigureVapi     = "Please configure your Vapi Keys in the Settings tab to start calling."
	msgEmailMismatch     = "Email confirmation does not match."
	msgResetEmailMissing = "Your account has no email address to confirm against."
)

// Store is the persistence surface for tenant settings.
type Store interface {
	Get(ctx context.Context, tenantID uuid.UUID) (repository.Settings, error)
	Upsert(ctx context.Context, tenantID uuid.UUID, p repository.Patch) (repository.Settings, error)
	ResetTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

type Service struct {
	store Store
	log   *logger.Logger
}

func New(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// CallCredentials are the tenant's own voice provider keys. There is no shared fallback.
type CallCredentials struct {
	PrivateKey    string
	AssistantID   string
	PhoneNumberID string
}

// BusinessProfile parametrises the assistant's instructions.
type BusinessProfile struct {
	BusinessName       string
	BusinessIndustry   string
	AgentName          string
	AgentRole          string
	BusinessHoursStart string
	BusinessHoursEnd   string
	CancellationPolicy string
	CustomKnowledge    string
}

// View is the settings representation returned to the dashboard.
type View struct {
	VapiPrivateKey      string   `json:"vapiPrivateKey"`
	VapiPublicKey       string   `json:"vapiPublicKey"`
	VapiAssistantID     string   `json:"vapiAssistantId"`
	VapiPhoneNumberID   string   `json:"vapiPhoneNumberId"`
	CalendarEmail       string   `json:"calendarEmail"`
	BusinessName        string   `json:"businessName"`
	BusinessIndustry    string   `json:"businessIndustry"`
	AgentName           string   `json:"agentName"`
	AgentRole           string   `json:"agentRole"`
	BusinessHoursStart  string   `json:"businessHoursStart"`
	BusinessHoursEnd    string   `json:"businessHoursEnd"`
	AvgAppointmentValue *float64 `json:"avgAppointmentValue"`
	CancellationPolicy  string   `json:"cancellationPolicy"`
	CustomKnowledge     string   `json:"customKnowledge"`
	CallingReady        bool     `json:"callingReady"`
	CalendarReady       bool     `json:"calendarReady"`
}

// UpdateRequest is a partial settings update; omitted fields are left alone.
type UpdateRequest struct {
	VapiPrivateKey      *string  `json:"vapiPrivateKey"`
	VapiPublicKey       *string  `json:"vapiPublicKey"`
	VapiAssistantID     *string  `json:"vapiAssistantId"`
	VapiPhoneNumberID   *string  `json:"vapiPhoneNumberId"`
	CalendarEmail       *string  `json:"calendarEmail" validate:"omitempty,email"`
	BusinessName        *string  `json:"businessName"`
	BusinessIndustry    *string  `json:"businessIndustry"`
	AgentName           *string  `json:"agentName"`
	AgentRole           *string  `json:"agentRole"`
	BusinessHoursStart  *string  `json:"businessHoursStart"`
	BusinessHoursEnd    *string  `json:"businessHoursEnd"`
	AvgAppointmentValue *float64 `json:"avgAppointmentValue" validate:"omitempty,gte=0"`
	CancellationPolicy  *string  `json:"cancellationPolicy"`
	CustomKnowledge     *string  `json:"customKnowledge"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

// maskSecret keeps only the last four characters.
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

func (s *Service) load(ctx context.Context, tenantID uuid.UUID) (repository.Settings, error) {
	settings, err := s.store.Get(ctx, tenantID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Settings{TenantID: tenantID}, nil
	}
	return settings, err
}

func toView(st repository.Settings) View {
	return View{
		VapiPrivateKey:      maskSecret(str(st.VapiPrivateKey)),
		VapiPublicKey:       str(st.VapiPublicKey),
		VapiAssistantID:     str(st.VapiAssistantID),
		VapiPhoneNumberID:   str(st.VapiPhoneNumberID),
		CalendarEmail:       str(st.CalendarEmail),
		BusinessName:        str(st.BusinessName),
		BusinessIndustry:    str(st.BusinessIndustry),
		AgentName:           str(st.AgentName),
		AgentRole:           str(st.AgentRole),
		BusinessHoursStart:  str(st.BusinessHoursStart),
		BusinessHoursEnd:    str(st.BusinessHoursEnd),
		AvgAppointmentValue: st.AvgAppointmentValue,
		CancellationPolicy:  str(st.CancellationPolicy),
		CustomKnowledge:     str(st.CustomKnowledge),
		CallingReady:        str(st.VapiPrivateKey) != "" && str(st.VapiAssistantID) != "" && str(st.VapiPhoneNumberID) != "",
		CalendarReady:       str(st.CalendarEmail) != "",
	}
}

// Get returns the tenant's settings with the private key masked.
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID) (View, error) {
	st, err := s.load(ctx, tenantID)
	if err != nil {
		return View{}, err
	}
	return toView(st), nil
}

// Update changes only the fields present in req.
func (s *Service) Update(ctx context.Context, tenantID uuid.UUID, req UpdateRequest) (View, error) {
	st, err := s.store.Upsert(ctx, tenantID, repository.Patch{
		VapiPrivateKey:      trimmed(req.VapiPrivateKey),
		VapiPublicKey:       trimmed(req.VapiPublicKey),
		VapiAssistantID:     trimmed(req.VapiAssistantID),
		VapiPhoneNumberID:   trimmed(req.VapiPhoneNumberID),
		CalendarEmail:       trimmed(req.CalendarEmail),
		BusinessName:        trimmed(req.BusinessName),
		BusinessIndustry:    trimmed(req.BusinessIndustry),
		AgentName:           trimmed(req.AgentName),
		AgentRole:           trimmed(req.AgentRole),
		BusinessHoursStart:  trimmed(req.BusinessHoursStart),
		BusinessHoursEnd:    trimmed(req.BusinessHoursEnd),
		AvgAppointmentValue: req.AvgAppointmentValue,
		CancellationPolicy:  trimmed(req.CancellationPolicy),
		CustomKnowledge:     req.CustomKnowledge,
	})
	if err != nil {
		s.log.WithContext(ctx).DatabaseError("settings.update", err)
		return View{}, apperr.Wrap(apperr.KindInternal, "failed to save settings", err)
	}
	return toView(st), nil
}

// SaveProvisioned stores the keys and ids produced by assistant provisioning.
func (s *Service) SaveProvisioned(ctx context.Context, tenantID uuid.UUID, privateKey, assistantID, phoneNumberID string, profile BusinessProfile) error {
	_, err := s.store.Upsert(ctx, tenantID, repository.Patch{
		VapiPrivateKey:    &privateKey,
		VapiAssistantID:   &assistantID,
		VapiPhoneNumberID: &phoneNumberID,
		BusinessName:      &profile.BusinessName,
		BusinessIndustry:  &profile.BusinessIndustry,
		AgentName:         &profile.AgentName,
		AgentRole:         &profile.AgentRole,
	})
	return err
}

// Reset wipes the tenant's leads and settings once the account email is confirmed.
func (s *Service) Reset(ctx context.Context, tenantID uuid.UUID, accountEmail, confirmEmail string) (int64, error) {
	if strings.TrimSpace(accountEmail) == "" {
		return 0, apperr.Forbidden(msgResetEmailMissing)
	}
	if !strings.EqualFold(strings.TrimSpace(accountEmail), strings.TrimSpace(confirmEmail)) {
		return 0, apperr.Validation(msgEmailMismatch)
	}
	deleted, err := s.store.ResetTenant(ctx, tenantID)
	if err != nil {
		s.log.WithContext(ctx).DatabaseError("settings.reset", err)
		return 0, apperr.Wrap(apperr.KindInternal, "failed to reset account", err)
	}
	s.log.WithContext(ctx).Info("tenant data reset", "tenantId", tenantID, "leadsDeleted", deleted)
	return deleted, nil
}

// CallCredentials returns the tenant's call provider keys or a configuration error.
func (s *Service) CallCredentials(ctx context.Context, tenantID uuid.UUID) (CallCredentials, error) {
	st, err := s.load(ctx, tenantID)
	if err != nil {
		return CallCredentials{}, err
	}
	creds := CallCredentials{
		PrivateKey:    str(st.VapiPrivateKey),
		AssistantID:   str(st.VapiAssistantID),
		PhoneNumberID: str(st.VapiPhoneNumberID),
	}
	if creds.PrivateKey == "" || creds.AssistantID == "" || creds.PhoneNumberID == "" {
		return CallCredentials{}, apperr.Configuration(msgConfigureVapi)
	}
	return creds, nil
}

// CalendarIdentity returns the tenant's calendar id, or "" when none is configured.
func (s *Service) CalendarIdentity(ctx context.Context, tenantID uuid.UUID) (string, error) {
	st, err := s.load(ctx, tenantID)
	if err != nil {
		return "", err
	}
	return str(st.CalendarEmail), nil
}

// Profile returns the business profile used for assistant instructions.
func (s *Service) Profile(ctx context.Context, tenantID uuid.UUID) (BusinessProfile, error) {
	st, err := s.load(ctx, tenantID)
	if err != nil {
		return BusinessProfile{}, err
	}
	return BusinessProfile{
		BusinessName:       str(st.BusinessName),
		BusinessIndustry:   str(st.BusinessIndustry),
		AgentName:          str(st.AgentName),
		AgentRole:          str(st.AgentRole),
		BusinessHoursStart: str(st.BusinessHoursStart),
		BusinessHoursEnd:   str(st.BusinessHoursEnd),
		CancellationPolicy: str(st.CancellationPolicy),
		CustomKnowledge:    str(st.CustomKnowledge),
	}, nil
}
