// Package leadstest provides an in-memory lead store for tests in other packages.
package leadstest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"revive_backend/internal/leads/domain"
	"revive_backend/internal/leads/repository"
	"revive_backend/platform/phone"

	"github.com/google/uuid"
)

// Store mirrors the Postgres repository semantics closely enough for unit tests.
type Store struct {
	mu    sync.Mutex
	leads map[uuid.UUID]*repository.Lead
	seq   int
	// Err, when set, is returned by every method.
	Err error
}

func New() *Store {
	return &Store{leads: make(map[uuid.UUID]*repository.Lead)}
}

// Seed stores a lead directly and returns it.
func (s *Store) Seed(tenantID uuid.UUID, name, phoneNumber string, status domain.Status) repository.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	now := time.Unix(int64(s.seq), 0)
	lead := &repository.Lead{
		ID: uuid.New(), TenantID: tenantID, Name: name, Phone: phoneNumber,
		Status: status, CreatedAt: now, UpdatedAt: now,
	}
	s.leads[lead.ID] = lead
	return *lead
}

// Get returns a copy of the stored lead.
func (s *Store) Get(id uuid.UUID) (repository.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return repository.Lead{}, false
	}
	return *l, true
}

// Notes returns the stored notes or "".
func (s *Store) Notes(id uuid.UUID) string {
	l, ok := s.Get(id)
	if !ok || l.Notes == nil {
		return ""
	}
	return *l.Notes
}

func inTenant(l *repository.Lead, tenantID *uuid.UUID) bool {
	return tenantID == nil || l.TenantID == *tenantID
}

func (s *Store) sorted() []*repository.Lead {
	out := make([]*repository.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) find(tenantID *uuid.UUID, match func(*repository.Lead) bool) []repository.LeadRef {
	refs := make([]repository.LeadRef, 0, 2)
	for _, l := range s.sorted() {
		if inTenant(l, tenantID) && match(l) {
			refs = append(refs, repository.LeadRef{ID: l.ID, TenantID: l.TenantID, Phone: l.Phone})
			if len(refs) == 2 {
				break
			}
		}
	}
	return refs
}

func (s *Store) FindByPhoneExact(_ context.Context, tenantID *uuid.UUID, p string) ([]repository.LeadRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.find(tenantID, func(l *repository.Lead) bool { return l.Phone == p }), nil
}

func (s *Store) FindByNationalDigits(_ context.Context, tenantID *uuid.UUID, digits string) ([]repository.LeadRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.find(tenantID, func(l *repository.Lead) bool {
		return l.Phone == digits || strings.HasSuffix(phone.Digits(l.Phone), digits)
	}), nil
}

func allowed(from domain.Status, set []domain.Status) bool {
	for _, s := range set {
		if s == from {
			return true
		}
	}
	return false
}

func (s *Store) UpsertOnPhone(_ context.Context, tenantID uuid.UUID, p string, f repository.UpsertFields) (repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return repository.Lead{}, s.Err
	}
	return s.upsert(tenantID, p, f), nil
}

func (s *Store) upsert(tenantID uuid.UUID, p string, f repository.UpsertFields) repository.Lead {
	s.seq++
	now := time.Unix(int64(s.seq), 0)
	for _, l := range s.leads {
		if l.TenantID != tenantID || l.Phone != p {
			continue
		}
		l.Name = f.Name
		if f.Interest != nil {
			l.Interest = f.Interest
		}
		if f.Notes != nil {
			l.Notes = f.Notes
		}
		if allowed(l.Status, domain.AllowedSources(f.Status, f.Cause)) {
			l.Status = f.Status
		}
		if f.TouchContacted {
			l.LastContacted = &now
		}
		l.UpdatedAt = now
		return *l
	}

	lead := &repository.Lead{
		ID: uuid.New(), TenantID: tenantID, Name: f.Name, Phone: p, Status: f.Status,
		Notes: f.Notes, Interest: f.Interest, CreatedAt: now, UpdatedAt: now,
	}
	if f.TouchContacted {
		lead.LastContacted = &now
	}
	s.leads[lead.ID] = lead
	return *lead
}

func (s *Store) UpsertMany(_ context.Context, tenantID uuid.UUID, rows []repository.UpsertRow) ([]repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]repository.Lead, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.upsert(tenantID, row.Phone, row.Fields))
	}
	return out, nil
}

func (s *Store) UpdateStatus(_ context.Context, tenantID *uuid.UUID, leadID uuid.UUID, status domain.Status, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	l, ok := s.leads[leadID]
	if !ok || !inTenant(l, tenantID) {
		return repository.ErrNotFound
	}
	l.Status = status
	l.Notes = &notes
	return nil
}

func (s *Store) GetStatus(_ context.Context, tenantID *uuid.UUID, leadID uuid.UUID) (domain.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	l, ok := s.leads[leadID]
	if !ok || !inTenant(l, tenantID) {
		return "", repository.ErrNotFound
	}
	return l.Status, nil
}

func (s *Store) ApplyStatus(_ context.Context, tenantID *uuid.UUID, leadID uuid.UUID, w repository.StatusWrite) (domain.Status, domain.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", "", s.Err
	}
	l, ok := s.leads[leadID]
	if !ok || !inTenant(l, tenantID) {
		return "", "", repository.ErrNotFound
	}
	from := l.Status
	if allowed(from, w.AllowedFrom) {
		l.Status = w.To
	}
	if w.Notes != nil {
		notes := *w.Notes
		l.Notes = &notes
	}
	if w.TouchContacted {
		now := time.Now()
		l.LastContacted = &now
	}
	return from, l.Status, nil
}

func (s *Store) GetByID(_ context.Context, tenantID, leadID uuid.UUID) (repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return repository.Lead{}, s.Err
	}
	l, ok := s.leads[leadID]
	if !ok || l.TenantID != tenantID {
		return repository.Lead{}, repository.ErrNotFound
	}
	return *l, nil
}

func (s *Store) List(_ context.Context, tenantID uuid.UUID, status domain.Status) ([]repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	all := s.sorted()
	out := make([]repository.Lead, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		l := all[i]
		if l.TenantID == tenantID && (status == "" || l.Status == status) {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *Store) CountByStatus(_ context.Context, tenantID uuid.UUID) (map[domain.Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	counts := make(map[domain.Status]int)
	for _, l := range s.leads {
		if l.TenantID == tenantID {
			counts[l.Status]++
		}
	}
	return counts, nil
}

func (s *Store) Delete(_ context.Context, tenantID, leadID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	l, ok := s.leads[leadID]
	if !ok || l.TenantID != tenantID {
		return repository.ErrNotFound
	}
	delete(s.leads, leadID)
	return nil
}

func (s *Store) DeleteAll(_ context.Context, tenantID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for id, l := range s.leads {
		if l.TenantID == tenantID {
			delete(s.leads, id)
			n++
		}
	}
	return n, nil
}
