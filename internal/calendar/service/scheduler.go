package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"revive_backend/internal/calendar/google"
	"revive_backend/internal/calendar/repository"
	"revive_backend/platform/logger"
	"revive_backend/platform/metrics"

	"github.com/google/uuid"
)

const appointmentLength = time.Hour

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// EventWriter is the calendar provider surface the scheduler drives.
type EventWriter interface {
	EventLister
	InsertEvent(ctx context.Context, calendarID string, event google.Event) (google.Event, error)
	PatchEvent(ctx context.Context, calendarID, eventID string, patch google.Event) (google.Event, error)
}

// LinkStore remembers which calendar event belongs to which lead.
type LinkStore interface {
	Get(ctx context.Context, tenantID, leadID uuid.UUID) (repository.EventLink, error)
	Upsert(ctx context.Context, link repository.EventLink) error
}

// ScheduleRequest describes one booking. LeadID and EventID are optional.
type ScheduleRequest struct {
	Action   Action
	TenantID uuid.UUID
	LeadID   *uuid.UUID
	LeadName string
	Phone    string
	Datetime string
	EventID  string
}

type Scheduler struct {
	calendar EventWriter
	identity IdentitySource
	links    LinkStore
	loc      *time.Location
	now      func() time.Time
	metrics  *metrics.Recorder
	log      *logger.Logger
}

func NewScheduler(calendar EventWriter, identity IdentitySource, links LinkStore, loc *time.Location, rec *metrics.Recorder, log *logger.Logger) *Scheduler {
	return &Scheduler{
		calendar: calendar,
		identity: identity,
		links:    links,
		loc:      loc,
		now:      time.Now,
		metrics:  rec,
		log:      log,
	}
}

var offsetFreeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseAppointmentTime reads an ISO-8601 datetime. Values without an offset are
// taken as wall-clock time in loc.
func ParseAppointmentTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range offsetFreeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime %q", raw)
}

func eventPayload(name, phone string, start time.Time) google.Event {
	start = start.UTC()
	return google.Event{
		Summary:     fmt.Sprintf("Appt: %s (%s)", name, phone),
		Description: "Phone: " + phone,
		Start:       &google.EventTime{DateTime: start.Format(time.RFC3339), TimeZone: "UTC"},
		End:         &google.EventTime{DateTime: start.Add(appointmentLength).Format(time.RFC3339), TimeZone: "UTC"},
	}
}

// Schedule creates or moves the lead's appointment. It returns the event link and
// whether the calendar write happened. Provider failures are logged, never returned.
// An update that finds no existing event books a new one.
func (s *Scheduler) Schedule(ctx context.Context, req ScheduleRequest) (string, bool) {
	log := &logger.Logger{Logger: s.log.WithContext(ctx).With("action", string(req.Action), "tenantId", req.TenantID.String())}

	calendarID, err := s.identity.CalendarIdentity(ctx, req.TenantID)
	if err != nil {
		log.DatabaseError("calendar.identity", err)
		return "", false
	}
	if calendarID == "" {
		log.Warn("calendar write skipped: tenant has no calendar email configured")
		return "", false
	}

	start, err := ParseAppointmentTime(req.Datetime, s.loc)
	if err != nil {
		log.Warn("calendar write skipped: invalid datetime", "datetime", req.Datetime)
		return "", false
	}
	payload := eventPayload(req.LeadName, req.Phone, start)

	if req.Action == ActionUpdate {
		if eventID := s.findEventID(ctx, calendarID, req); eventID != "" {
			updated, err := s.calendar.PatchEvent(ctx, calendarID, eventID, payload)
			switch {
			case err == nil:
				s.metrics.CalendarOperation("patch", "ok")
				s.remember(ctx, req, updated, start)
				return updated.HTMLLink, true
			case google.IsNotFound(err):
				s.metrics.CalendarOperation("patch", "not_found")
				log.Warn("event to reschedule no longer exists; booking a new one", "eventId", eventID)
			default:
				s.metrics.CalendarOperation("patch", "error")
				log.ProviderError("google_calendar", "events.patch", err)
				return "", false
			}
		} else {
			log.Info("no existing event found to reschedule; booking a new one")
		}
	}

	created, err := s.calendar.InsertEvent(ctx, calendarID, payload)
	if err != nil {
		s.metrics.CalendarOperation("insert", "error")
		log.ProviderError("google_calendar", "events.insert", err)
		return "", false
	}
	s.metrics.CalendarOperation("insert", "ok")
	s.remember(ctx, req, created, start)
	return created.HTMLLink, true
}

// findEventID tries the explicit id, then the stored mapping, then a free-text search
// for future events whose description contains the exact phone string.
func (s *Scheduler) findEventID(ctx context.Context, calendarID string, req ScheduleRequest) string {
	if req.EventID != "" {
		return req.EventID
	}

	if req.LeadID != nil && s.links != nil {
		link, err := s.links.Get(ctx, req.TenantID, *req.LeadID)
		switch {
		case err == nil:
			return link.ExternalEventID
		case !errors.Is(err, repository.ErrNotFound):
			s.log.WithContext(ctx).DatabaseError("calendar.links.get", err)
		}
	}

	if req.Phone == "" {
		return ""
	}
	events, err := s.calendar.ListEvents(ctx, calendarID, google.ListOptions{
		TimeMin:      s.now(),
		Query:        req.Phone,
		SingleEvents: true,
		OrderBy:      "startTime",
	})
	if err != nil {
		s.metrics.CalendarOperation("search", "error")
		s.log.WithContext(ctx).ProviderError("google_calendar", "events.list", err)
		return ""
	}
	s.metrics.CalendarOperation("search", "ok")
	for _, ev := range events {
		if ev.ID != "" && strings.Contains(ev.Description, req.Phone) {
			return ev.ID
		}
	}
	return ""
}

func (s *Scheduler) remember(ctx context.Context, req ScheduleRequest, ev google.Event, start time.Time) {
	if req.LeadID == nil || s.links == nil || ev.ID == "" {
		return
	}
	err := s.links.Upsert(ctx, repository.EventLink{
		TenantID:        req.TenantID,
		LeadID:          *req.LeadID,
		ExternalEventID: ev.ID,
		HTMLLink:        ev.HTMLLink,
		StartsAt:        start,
	})
	if err != nil {
		s.log.WithContext(ctx).DatabaseError("calendar.links.upsert", err)
	}
}
