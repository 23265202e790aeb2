// Package settingstest provides an in-memory settings store for tests in other packages.
package settingstest

import (
	"context"
	"sync"
	"time"

	"revive_backend/internal/settings/repository"

	"github.com/google/uuid"
)

type Store struct {
	mu   sync.Mutex
	rows map[uuid.UUID]repository.Settings
	// Resets counts ResetTenant calls.
	Resets int
	// Err, when set, is returned by every method.
	Err error
}

func New() *Store {
	return &Store{rows: make(map[uuid.UUID]repository.Settings)}
}

// Put stores settings directly.
func (s *Store) Put(st repository.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[st.TenantID] = st
}

func (s *Store) Get(_ context.Context, tenantID uuid.UUID) (repository.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return repository.Settings{}, s.Err
	}
	st, ok := s.rows[tenantID]
	if !ok {
		return repository.Settings{}, repository.ErrNotFound
	}
	return st, nil
}

func pick[T any](next, current *T) *T {
	if next != nil {
		return next
	}
	return current
}

func (s *Store) Upsert(_ context.Context, tenantID uuid.UUID, p repository.Patch) (repository.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return repository.Settings{}, s.Err
	}
	st := s.rows[tenantID]
	st.TenantID = tenantID
	st.VapiPrivateKey = pick(p.VapiPrivateKey, st.VapiPrivateKey)
	st.VapiPublicKey = pick(p.VapiPublicKey, st.VapiPublicKey)
	st.VapiAssistantID = pick(p.VapiAssistantID, st.VapiAssistantID)
	st.VapiPhoneNumberID = pick(p.VapiPhoneNumberID, st.VapiPhoneNumberID)
	st.CalendarEmail = pick(p.CalendarEmail, st.CalendarEmail)
	st.BusinessName = pick(p.BusinessName, st.BusinessName)
	st.BusinessIndustry = pick(p.BusinessIndustry, st.BusinessIndustry)
	st.AgentName = pick(p.AgentName, st.AgentName)
	st.AgentRole = pick(p.AgentRole, st.AgentRole)
	st.BusinessHoursStart = pick(p.BusinessHoursStart, st.BusinessHoursStart)
	st.BusinessHoursEnd = pick(p.BusinessHoursEnd, st.BusinessHoursEnd)
	st.AvgAppointmentValue = pick(p.AvgAppointmentValue, st.AvgAppointmentValue)
	st.CancellationPolicy = pick(p.CancellationPolicy, st.CancellationPolicy)
	st.CustomKnowledge = pick(p.CustomKnowledge, st.CustomKnowledge)
	st.UpdatedAt = time.Now()
	s.rows[tenantID] = st
	return st, nil
}

func (s *Store) ResetTenant(_ context.Context, tenantID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	s.Resets++
	delete(s.rows, tenantID)
	return 0, nil
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
