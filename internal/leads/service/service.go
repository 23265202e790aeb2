package service

import (
	"context"
	"errors"
	"strings"

	"revive_backend/internal/events"
	"revive_backend/internal/leads/domain"
	"revive_backend/internal/leads/repository"
	"revive_backend/platform/apperr"
	"revive_backend/platform/logger"
	"revive_backend/platform/sanitize"

	"github.com/google/uuid"
)

const defaultInterest = "General"

var ErrLeadNotFound = apperr.NotFound("lead not found")

// Store is the persistence surface of the leads context.
type Store interface {
	LookupStore
	UpsertOnPhone(ctx context.Context, tenantID uuid.UUID, phone string, f repository.UpsertFields) (repository.Lead, error)
	UpsertMany(ctx context.Context, tenantID uuid.UUID, rows []repository.UpsertRow) ([]repository.Lead, error)
	UpdateStatus(ctx context.Context, tenantID *uuid.UUID, leadID uuid.UUID, status domain.Status, notes string) error
	GetStatus(ctx context.Context, tenantID *uuid.UUID, leadID uuid.UUID) (domain.Status, error)
	ApplyStatus(ctx context.Context, tenantID *uuid.UUID, leadID uuid.UUID, w repository.StatusWrite) (domain.Status, domain.Status, error)
	GetByID(ctx context.Context, tenantID, leadID uuid.UUID) (repository.Lead, error)
	List(ctx context.Context, tenantID uuid.UUID, status domain.Status) ([]repository.Lead, error)
	CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[domain.Status]int, error)
	Delete(ctx context.Context, tenantID, leadID uuid.UUID) error
	DeleteAll(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

type Service struct {
	store    Store
	resolver *Resolver
	bus      events.Bus
	log      *logger.Logger
}

func New(store Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		resolver: NewResolver(store, log),
		bus:      bus,
		log:      log,
	}
}

// Resolver exposes the identity resolver backed by the same store.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// UploadLead is one contact from an upload or CSV import.
type UploadLead struct {
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Interest string `json:"interest"`
	Notes    string `json:"notes"`
}

// Upload upserts contacts on (tenant, phone) with status Pending. Phones are stored as
// given. Rows without a name or phone are skipped. Booked leads keep their status.
func (s *Service) Upload(ctx context.Context, tenantID uuid.UUID, items []UploadLead) ([]repository.Lead, error) {
	rows := make([]repository.UpsertRow, 0, len(items))
	seen := make(map[string]int, len(items))
	for _, item := range items {
		name := sanitize.Text(item.Name)
		phone := strings.TrimSpace(item.Phone)
		if name == "" || phone == "" {
			continue
		}
		interest := sanitize.Text(item.Interest)
		if interest == "" {
			interest = defaultInterest
		}
		row := repository.UpsertRow{
			Phone: phone,
			Fields: repository.UpsertFields{
				Name:     name,
				Interest: &interest,
				Status:   domain.StatusPending,
				Cause:    domain.CauseUpload,
			},
		}
		if notes := sanitize.Text(item.Notes); notes != "" {
			row.Fields.Notes = &notes
		}
		// A file listing the same phone twice keeps the last row.
		if i, ok := seen[phone]; ok {
			rows[i] = row
			continue
		}
		seen[phone] = len(rows)
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, apperr.Validation("No valid leads found. Each row needs a name and a phone number.")
	}

	leads, err := s.store.UpsertMany(ctx, tenantID, rows)
	if err != nil {
		s.log.WithContext(ctx).DatabaseError("leads.upload", err)
		return nil, apperr.Wrap(apperr.KindInternal, "failed to save leads", err)
	}
	return leads, nil
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, status string) ([]repository.Lead, error) {
	var filter domain.Status
	if status != "" {
		parsed, err := domain.ParseStatus(status)
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
		filter = parsed
	}
	return s.store.List(ctx, tenantID, filter)
}

// Stats summarises calling progress for the dashboard.
type Stats struct {
	TotalLeads         int                   `json:"totalLeads"`
	CallsMade          int                   `json:"callsMade"`
	AppointmentsBooked int                   `json:"appointmentsBooked"`
	ConversionRate     float64               `json:"conversionRate"`
	ByStatus           map[domain.Status]int `json:"byStatus"`
}

func (s *Service) Stats(ctx context.Context, tenantID uuid.UUID) (Stats, error) {
	counts, err := s.store.CountByStatus(ctx, tenantID)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{ByStatus: make(map[domain.Status]int, len(domain.AllStatuses))}
	for _, status := range domain.AllStatuses {
		n := counts[status]
		stats.ByStatus[status] = n
		stats.TotalLeads += n
		if domain.CountsAsCalled(status) {
			stats.CallsMade += n
		}
	}
	stats.AppointmentsBooked = counts[domain.StatusBooked]
	if stats.CallsMade > 0 {
		stats.ConversionRate = float64(stats.AppointmentsBooked) / float64(stats.CallsMade) * 100
	}
	return stats, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, leadID uuid.UUID) error {
	err := s.store.Delete(ctx, tenantID, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrLeadNotFound
	}
	return err
}

func (s *Service) DeleteAll(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return s.store.DeleteAll(ctx, tenantID)
}

// TransitionInput describes one status write routed through the transition table.
type TransitionInput struct {
	TenantID       *uuid.UUID
	LeadID         uuid.UUID
	To             domain.Status
	Cause          domain.Cause
	Notes          *string
	TouchContacted bool
}

// TransitionResult reports what the store ended up with.
type TransitionResult struct {
	From    domain.Status
	To      domain.Status
	Applied bool
}

// Transition writes notes whenever they are given and moves the status only when the
// transition table allows it. The check and the write happen in one store call.
func (s *Service) Transition(ctx context.Context, in TransitionInput) (TransitionResult, error) {
	allowed := domain.AllowedSources(in.To, in.Cause)
	from, to, err := s.store.ApplyStatus(ctx, in.TenantID, in.LeadID, repository.StatusWrite{
		To:             in.To,
		Notes:          sanitize.TextPtr(in.Notes),
		AllowedFrom:    allowed,
		TouchContacted: in.TouchContacted,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return TransitionResult{}, ErrLeadNotFound
	}
	if err != nil {
		return TransitionResult{}, err
	}

	result := TransitionResult{From: from, To: to, Applied: to == in.To}
	if !result.Applied {
		s.log.WithContext(ctx).Info("status write held by transition table",
			"leadId", in.LeadID, "current", from, "requested", in.To, "cause", in.Cause)
	}
	if from != to && s.bus != nil {
		tenant := uuid.Nil
		if in.TenantID != nil {
			tenant = *in.TenantID
		}
		s.bus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			TenantID:  tenant,
			LeadID:    in.LeadID,
			From:      string(from),
			To:        string(to),
			Cause:     string(in.Cause),
		})
	}
	return result, nil
}

// SetStatus is an operator edit; it may set any status. Nil notes keep the stored notes.
func (s *Service) SetStatus(ctx context.Context, tenantID, leadID uuid.UUID, status string, notes *string) (repository.Lead, error) {
	to, err := domain.ParseStatus(status)
	if err != nil {
		return repository.Lead{}, apperr.Validation(err.Error())
	}
	if _, err := s.Transition(ctx, TransitionInput{
		TenantID: &tenantID,
		LeadID:   leadID,
		To:       to,
		Cause:    domain.CauseManual,
		Notes:    notes,
	}); err != nil {
		return repository.Lead{}, err
	}
	return s.store.GetByID(ctx, tenantID, leadID)
}

// PrepareCall finds the lead about to be dialled, or creates it, and marks it Calling
// before the provider is contacted. Matching uses the resolver so a lead uploaded as
// "5551234567" is reused for "+15551234567".
func (s *Service) PrepareCall(ctx context.Context, tenantID uuid.UUID, name, dialable, interest string) (repository.LeadRef, error) {
	ref, err := s.resolver.Resolve(ctx, &tenantID, dialable)
	switch {
	case err == nil:
		if _, err := s.Transition(ctx, TransitionInput{
			TenantID:       &tenantID,
			LeadID:         ref.ID,
			To:             domain.StatusCalling,
			Cause:          domain.CauseCallStarted,
			TouchContacted: true,
		}); err != nil {
			return repository.LeadRef{}, err
		}
		return ref, nil
	case errors.Is(err, ErrNoMatch):
		fields := repository.UpsertFields{
			Name:           name,
			Status:         domain.StatusCalling,
			Cause:          domain.CauseCallStarted,
			TouchContacted: true,
		}
		if interest != "" {
			fields.Interest = &interest
		}
		lead, err := s.store.UpsertOnPhone(ctx, tenantID, dialable, fields)
		if err != nil {
			return repository.LeadRef{}, err
		}
		return repository.LeadRef{ID: lead.ID, TenantID: lead.TenantID, Phone: lead.Phone}, nil
	case errors.Is(err, ErrAmbiguousMatch):
		return repository.LeadRef{}, apperr.Conflict("More than one lead uses this phone number. Remove the duplicate before calling.")
	default:
		return repository.LeadRef{}, err
	}
}
