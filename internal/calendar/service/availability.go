// Package service decides when and with what arguments the calendar provider is called.
package service

import (
	"context"
	"strings"
	"time"
	_ "time/tzdata"

	"revive_backend/internal/calendar/google"
	"revive_backend/platform/logger"
	"revive_backend/platform/metrics"

	"github.com/google/uuid"
)

// Sentences read back to the caller by the voice agent.
const (
	MsgCalendarNotConfigured = "Configuration Error: Please configure your Calendar Email in Settings."
	MsgCalendarFree          = "The calendar is free. You can book."
	MsgCalendarUnavailable   = "Could not check calendar."
	MsgInvalidDate           = "Error: Invalid date format. Please use YYYY-MM-DD."

	dateLayout      = "2006-01-02"
	busyTimeLayout  = "03:04 PM"
	allDayLabel     = "All Day"
	busyPrefix      = "Busy times on that day: "
	defaultTimezone = "America/New_York"
)

// EventLister is the read side of the calendar provider.
type EventLister interface {
	ListEvents(ctx context.Context, calendarID string, opts google.ListOptions) ([]google.Event, error)
}

// IdentitySource resolves which calendar belongs to a tenant. "" means not configured.
type IdentitySource interface {
	CalendarIdentity(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// LoadLocation resolves the display timezone, falling back to America/New_York.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = defaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	return loc
}

type AvailabilityChecker struct {
	events   EventLister
	identity IdentitySource
	loc      *time.Location
	metrics  *metrics.Recorder
	log      *logger.Logger
}

func NewAvailabilityChecker(events EventLister, identity IdentitySource, loc *time.Location, rec *metrics.Recorder, log *logger.Logger) *AvailabilityChecker {
	return &AvailabilityChecker{events: events, identity: identity, loc: loc, metrics: rec, log: log}
}

// CheckAvailability summarises the busy times of one day in the display timezone.
// It never returns an error; every failure becomes a sentence the agent can relay.
func (a *AvailabilityChecker) CheckAvailability(ctx context.Context, tenantID uuid.UUID, date string) string {
	log := a.log.WithContext(ctx)

	calendarID, err := a.identity.CalendarIdentity(ctx, tenantID)
	if err != nil {
		log.DatabaseError("calendar.identity", err)
		return MsgCalendarUnavailable
	}
	if calendarID == "" {
		return MsgCalendarNotConfigured
	}

	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), a.loc)
	if err != nil {
		return MsgInvalidDate
	}
	endOfDay := day.AddDate(0, 0, 1).Add(-time.Second)

	events, err := a.events.ListEvents(ctx, calendarID, google.ListOptions{
		TimeMin:      day,
		TimeMax:      endOfDay,
		SingleEvents: true,
		OrderBy:      "startTime",
		TimeZone:     a.loc.String(),
	})
	if err != nil {
		a.metrics.CalendarOperation("list", "error")
		log.ProviderError("google_calendar", "events.list", err)
		return MsgCalendarUnavailable
	}
	a.metrics.CalendarOperation("list", "ok")

	if len(events) == 0 {
		return MsgCalendarFree
	}

	slots := make([]string, 0, len(events))
	for _, ev := range events {
		slots = append(slots, a.renderStart(ev))
	}
	return busyPrefix + strings.Join(slots, ", ") + "."
}

func (a *AvailabilityChecker) renderStart(ev google.Event) string {
	if ev.Start == nil || ev.Start.DateTime == "" {
		return allDayLabel
	}
	start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		return allDayLabel
	}
	return start.In(a.loc).Format(busyTimeLayout)
}
