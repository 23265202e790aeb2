// Package notification reacts to domain events by telling the tenant what happened.
// Domain modules publish events and never talk to mail providers directly.
package notification

import (
	"context"
	"fmt"
	"time"

	calendarsvc "revive_backend/internal/calendar/service"
	"revive_backend/internal/email"
	"revive_backend/internal/events"
	"revive_backend/internal/scheduler"
	"revive_backend/platform/logger"

	"github.com/google/uuid"
)

const whenLayout = "Mon, Jan 2 2006 at 03:04 PM MST"

// RecipientSource resolves where a tenant's notifications go. "" means nowhere.
type RecipientSource interface {
	CalendarIdentity(ctx context.Context, tenantID uuid.UUID) (string, error)
}

type Module struct {
	sender     email.Sender
	recipients RecipientSource
	queue      scheduler.NotificationScheduler
	loc        *time.Location
	log        *logger.Logger
}

// New builds the module. A nil queue sends mail inline from the event handler.
func New(sender email.Sender, recipients RecipientSource, queue scheduler.NotificationScheduler, loc *time.Location, log *logger.Logger) *Module {
	if loc == nil {
		loc = time.UTC
	}
	return &Module{sender: sender, recipients: recipients, queue: queue, loc: loc, log: log}
}

func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.AppointmentBooked{}.EventName(), m)
}

func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.AppointmentBooked:
		return m.handleAppointmentBooked(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleAppointmentBooked(ctx context.Context, e events.AppointmentBooked) error {
	if e.TenantID == nil {
		m.log.WithContext(ctx).Info("booking notification skipped: no tenant", "phone", e.Phone)
		return nil
	}
	payload := scheduler.BookingNotificationPayload{
		TenantID:     e.TenantID.String(),
		CustomerName: e.CustomerName,
		Phone:        e.Phone,
		Datetime:     e.Datetime,
		Rescheduled:  e.Rescheduled,
		CalendarLink: e.CalendarLink,
	}
	if e.LeadID != nil {
		payload.LeadID = e.LeadID.String()
	}

	if m.queue != nil {
		return m.queue.EnqueueBookingNotification(ctx, payload)
	}
	return m.SendBookingNotification(ctx, payload)
}

// SendBookingNotification mails the tenant's calendar address. It is the worker's
// handler for queued notifications.
func (m *Module) SendBookingNotification(ctx context.Context, payload scheduler.BookingNotificationPayload) error {
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return fmt.Errorf("booking notification: invalid tenant id %q: %w", payload.TenantID, err)
	}

	to, err := m.recipients.CalendarIdentity(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("booking notification: load recipient: %w", err)
	}
	if to == "" {
		m.log.WithContext(ctx).Info("booking notification skipped: tenant has no calendar email", "tenantId", tenantID)
		return nil
	}

	err = m.sender.SendBookingNotification(ctx, to, email.Booking{
		CustomerName: payload.CustomerName,
		Phone:        payload.Phone,
		When:         m.formatWhen(payload.Datetime),
		Rescheduled:  payload.Rescheduled,
		CalendarLink: payload.CalendarLink,
	})
	if err != nil {
		m.log.WithContext(ctx).ProviderError("smtp", "booking_notification", err)
		return err
	}
	return nil
}

func (m *Module) formatWhen(raw string) string {
	if raw == "" {
		return "Unspecified"
	}
	t, err := calendarsvc.ParseAppointmentTime(raw, m.loc)
	if err != nil {
		return raw
	}
	return t.In(m.loc).Format(whenLayout)
}
