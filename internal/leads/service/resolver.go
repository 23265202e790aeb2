package service

import (
	"context"
	"errors"
	"strings"

	"revive_backend/internal/leads/repository"
	"revive_backend/platform/apperr"
	"revive_backend/platform/logger"
	"revive_backend/platform/phone"

	"github.com/google/uuid"
)

var (
	ErrNoMatch        = errors.New("no lead matches phone number")
	ErrAmbiguousMatch = errors.New("phone number matches more than one lead")
)

// LookupStore is the read side the resolver needs.
type LookupStore interface {
	FindByPhoneExact(ctx context.Context, tenantID *uuid.UUID, phone string) ([]repository.LeadRef, error)
	FindByNationalDigits(ctx context.Context, tenantID *uuid.UUID, digits string) ([]repository.LeadRef, error)
}

// Resolver maps a noisy caller number to a single stored lead.
type Resolver struct {
	store LookupStore
	log   *logger.Logger
}

func NewResolver(store LookupStore, log *logger.Logger) *Resolver {
	return &Resolver{store: store, log: log}
}

type lookupStep struct {
	name  string
	value string
	find  func(ctx context.Context, tenantID *uuid.UUID, value string) ([]repository.LeadRef, error)
}

// Resolve runs the cascade exact, plus-stripped, national digits (the last ten for
// NANP numbers). The first step that
// finds exactly one lead wins; a step finding several returns ErrAmbiguousMatch.
// A nil tenantID searches every tenant.
func (r *Resolver) Resolve(ctx context.Context, tenantID *uuid.UUID, rawPhone string) (repository.LeadRef, error) {
	raw := strings.TrimSpace(rawPhone)
	if raw == "" {
		return repository.LeadRef{}, ErrNoMatch
	}

	log := r.log.WithContext(ctx)
	if tenantID == nil {
		log.Warn("resolving lead without tenant identity; check the assistant's userId variable", "phone", raw)
	}

	steps := []lookupStep{{name: "exact", value: raw, find: r.store.FindByPhoneExact}}
	if stripped := phone.StripPlus(raw); stripped != raw {
		steps = append(steps, lookupStep{name: "plus_stripped", value: stripped, find: r.store.FindByPhoneExact})
	}
	if national := phone.MatchDigits(raw); national != "" {
		steps = append(steps, lookupStep{name: "national", value: national, find: r.store.FindByNationalDigits})
	}

	for _, step := range steps {
		refs, err := step.find(ctx, tenantID, step.value)
		if err != nil {
			return repository.LeadRef{}, apperr.Wrap(apperr.KindInternal, "lead lookup failed", err)
		}
		switch len(refs) {
		case 0:
			continue
		case 1:
			log.Debug("lead resolved", "step", step.name, "leadId", refs[0].ID)
			return refs[0], nil
		default:
			log.Warn("ambiguous lead match", "step", step.name, "phone", raw)
			return repository.LeadRef{}, ErrAmbiguousMatch
		}
	}

	return repository.LeadRef{}, ErrNoMatch
}
