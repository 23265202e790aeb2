// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"encoding/json"
	"time"

	"revive_backend/platform/events"
	"revive_backend/platform/logger"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// LeadStatusChanged is published after a status write lands on a lead.
type LeadStatusChanged struct {
	BaseEvent
	TenantID uuid.UUID `json:"tenantId"`
	LeadID   uuid.UUID `json:"leadId"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Cause    string    `json:"cause"`
}

func (e LeadStatusChanged) EventName() string { return "leads.status.changed" }

// CallInitiated is published when the voice provider accepted an outbound call.
type CallInitiated struct {
	BaseEvent
	TenantID uuid.UUID `json:"tenantId"`
	LeadID   uuid.UUID `json:"leadId"`
	CallID   string    `json:"callId"`
	Phone    string    `json:"phone"`
}

func (e CallInitiated) EventName() string { return "calls.initiated" }

// AppointmentBooked is published after a booking or reschedule tool call was reconciled.
// TenantID is nil when the delivery carried no tenant identity.
type AppointmentBooked struct {
	BaseEvent
	TenantID     *uuid.UUID `json:"tenantId,omitempty"`
	LeadID       *uuid.UUID `json:"leadId,omitempty"`
	CustomerName string     `json:"customerName"`
	Phone        string     `json:"phone"`
	Datetime     string     `json:"datetime"`
	Rescheduled  bool       `json:"rescheduled"`
	CalendarLink string     `json:"calendarLink,omitempty"`
}

func (e AppointmentBooked) EventName() string { return "appointments.booked" }

// CallEnded is published for every end-of-call report, together with the raw payload.
type CallEnded struct {
	BaseEvent
	TenantID    *uuid.UUID      `json:"tenantId,omitempty"`
	LeadID      *uuid.UUID      `json:"leadId,omitempty"`
	CallID      string          `json:"callId"`
	EndedReason string          `json:"endedReason"`
	Status      string          `json:"status"`
	EndedAt     time.Time       `json:"endedAt"`
	Raw         json.RawMessage `json:"-"`
}

func (e CallEnded) EventName() string { return "calls.ended" }
