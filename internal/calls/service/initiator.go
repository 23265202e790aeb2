// Package service starts outbound calls and rolls lead state back when the provider
// refuses them.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"revive_backend/internal/callprovider"
	"revive_backend/internal/events"
	"revive_backend/internal/leads/domain"
	leadrepo "revive_backend/internal/leads/repository"
	leadsvc "revive_backend/internal/leads/service"
	settingssvc "revive_backend/internal/settings/service"
	"revive_backend/platform/apperr"
	"revive_backend/platform/logger"
	"revive_backend/platform/metrics"
	"revive_backend/platform/phone"

	"github.com/google/uuid"
)

const (
	defaultInterest = "general services"

	// Assistant variable names read back by the webhook and the prompt.
	varInterest = "interest"
	varUserID   = "userId"

	msgNameRequired  = "Name is required"
	msgPhoneRequired = "Phone number is required"
	msgInvalidPhone  = "Invalid phone number format: %s"
	msgFailedToStart = "Failed to initiate call"

	notesProviderRejected = "System: Call failed to start. Error: %s"
	notesCallException    = "System: Call exception. Error: %s"
)

// CredentialSource yields the tenant's own provider credentials.
type CredentialSource interface {
	CallCredentials(ctx context.Context, tenantID uuid.UUID) (settingssvc.CallCredentials, error)
}

// LeadWriter is the lead state the initiator touches.
type LeadWriter interface {
	PrepareCall(ctx context.Context, tenantID uuid.UUID, name, dialable, interest string) (leadrepo.LeadRef, error)
	Transition(ctx context.Context, in leadsvc.TransitionInput) (leadsvc.TransitionResult, error)
}

// CallCreator is the provider call-creation endpoint.
type CallCreator interface {
	CreateCall(ctx context.Context, apiKey string, req callprovider.CreateCallRequest) (callprovider.Call, error)
}

type InitiateCallInput struct {
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Interest string `json:"interest"`
}

type Customer struct {
	Number string `json:"number"`
	Name   string `json:"name"`
}

type CallResult struct {
	ID       string    `json:"id"`
	Status   string    `json:"status"`
	LeadID   uuid.UUID `json:"leadId"`
	Customer Customer  `json:"customer"`
}

type Initiator struct {
	credentials CredentialSource
	leads       LeadWriter
	provider    CallCreator
	bus         events.Bus
	metrics     *metrics.Recorder
	log         *logger.Logger
}

func NewInitiator(credentials CredentialSource, leads LeadWriter, provider CallCreator, bus events.Bus, rec *metrics.Recorder, log *logger.Logger) *Initiator {
	return &Initiator{
		credentials: credentials,
		leads:       leads,
		provider:    provider,
		bus:         bus,
		metrics:     rec,
		log:         log,
	}
}

// InitiateCall dials one lead with the tenant's own credentials. The lead is marked
// Calling before the provider is contacted and moved to Failed if the provider refuses.
// Later transitions belong to the webhook.
func (i *Initiator) InitiateCall(ctx context.Context, tenantID uuid.UUID, in InitiateCallInput) (CallResult, error) {
	log := i.log.WithContext(ctx)

	name := strings.TrimSpace(in.Name)
	rawPhone := strings.TrimSpace(in.Phone)
	if name == "" {
		i.metrics.CallInitiation("invalid")
		return CallResult{}, apperr.Validation(msgNameRequired)
	}
	if rawPhone == "" {
		i.metrics.CallInitiation("invalid")
		return CallResult{}, apperr.Validation(msgPhoneRequired)
	}

	dialable := phone.SanitizeToDialable(rawPhone)
	if !phone.IsValidDialable(dialable) {
		i.metrics.CallInitiation("invalid")
		return CallResult{}, apperr.Validation(fmt.Sprintf(msgInvalidPhone, in.Phone))
	}
	if region, ok := phone.Inspect(dialable); !ok {
		log.Debug("dialling number outside any assigned range", "phone", dialable, "region", region)
	}

	creds, err := i.credentials.CallCredentials(ctx, tenantID)
	if err != nil {
		i.metrics.CallInitiation("not_configured")
		return CallResult{}, err
	}

	interest := strings.TrimSpace(in.Interest)
	ref, err := i.leads.PrepareCall(ctx, tenantID, name, dialable, interest)
	if err != nil {
		i.metrics.CallInitiation("lead_error")
		return CallResult{}, err
	}
	if interest == "" {
		interest = defaultInterest
	}

	call, err := i.provider.CreateCall(ctx, creds.PrivateKey, callprovider.CreateCallRequest{
		AssistantID:   creds.AssistantID,
		PhoneNumberID: creds.PhoneNumberID,
		Customer:      callprovider.Customer{Number: dialable, Name: name},
		AssistantOverrides: &callprovider.AssistantOverrides{
			VariableValues: map[string]string{
				varInterest: interest,
				varUserID:   tenantID.String(),
			},
		},
	})
	if err != nil {
		return CallResult{}, i.rollback(ctx, tenantID, ref, err)
	}

	i.metrics.CallInitiation("ok")
	log.Info("outbound call started", "callId", call.ID, "leadId", ref.ID, "providerStatus", call.Status)
	if i.bus != nil {
		i.bus.Publish(ctx, events.CallInitiated{
			BaseEvent: events.NewBaseEvent(),
			TenantID:  tenantID,
			LeadID:    ref.ID,
			CallID:    call.ID,
			Phone:     dialable,
		})
	}

	return CallResult{
		ID:       call.ID,
		Status:   call.Status,
		LeadID:   ref.ID,
		Customer: Customer{Number: dialable, Name: name},
	}, nil
}

// rollback records the failure on the lead and converts err into the error returned to
// the caller. A rollback that cannot be written is logged only.
func (i *Initiator) rollback(ctx context.Context, tenantID uuid.UUID, ref leadrepo.LeadRef, err error) error {
	log := i.log.WithContext(ctx)

	var apiErr *callprovider.APIError
	var notes, message string
	if errors.As(err, &apiErr) {
		i.metrics.CallInitiation("provider_rejected")
		message = apiErr.Message
		notes = fmt.Sprintf(notesProviderRejected, message)
	} else {
		i.metrics.CallInitiation("provider_error")
		message = err.Error()
		if message == "" {
			message = msgFailedToStart
		}
		notes = fmt.Sprintf(notesCallException, message)
	}
	log.ProviderError("vapi", "call.create", err)

	result, rbErr := i.leads.Transition(ctx, leadsvc.TransitionInput{
		TenantID: &tenantID,
		LeadID:   ref.ID,
		To:       domain.StatusFailed,
		Cause:    domain.CauseCallFailed,
		Notes:    &notes,
	})
	switch {
	case rbErr != nil:
		log.Error("call rollback failed", "leadId", ref.ID, "error", rbErr)
	case !result.Applied:
		log.Warn("call rollback held; lead moved on before the provider answered", "leadId", ref.ID, "status", result.To)
	default:
		log.Warn("call rolled back to Failed", "leadId", ref.ID)
	}

	return apperr.Upstream(message, err)
}
