package webhook

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"revive_backend/internal/calendar/google"
	calendarsvc "revive_backend/internal/calendar/service"
	"revive_backend/internal/events"
	"revive_backend/internal/leads/domain"
	"revive_backend/internal/leads/leadstest"
	leadsvc "revive_backend/internal/leads/service"
	"revive_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeIdentity struct{ email string }

func (f fakeIdentity) CalendarIdentity(context.Context, uuid.UUID) (string, error) {
	return f.email, nil
}

type fakeCalendar struct {
	mu       sync.Mutex
	events   []google.Event
	inserted []google.Event
	patched  []string
}

func (f *fakeCalendar) ListEvents(context.Context, string, google.ListOptions) ([]google.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]google.Event(nil), f.events...), nil
}

func (f *fakeCalendar) InsertEvent(_ context.Context, _ string, ev google.Event) (google.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, ev)
	ev.ID = "ev-new"
	ev.HTMLLink = "https://calendar.test/ev-new"
	return ev, nil
}

func (f *fakeCalendar) PatchEvent(_ context.Context, _ string, eventID string, ev google.Event) (google.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patched = append(f.patched, eventID)
	ev.ID = eventID
	return ev, nil
}

type memDeliveries struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memDeliveries) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

type fixture struct {
	tenant  uuid.UUID
	leads   *leadstest.Store
	leadSvc *leadsvc.Service
	cal     *fakeCalendar
	bus     *events.InMemoryBus
	router  *Router

	mu     sync.Mutex
	booked []events.AppointmentBooked
	ended  []events.CallEnded
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	log := logger.Discard()
	f := &fixture{
		tenant: uuid.New(),
		leads:  leadstest.New(),
		cal:    &fakeCalendar{},
		bus:    events.NewInMemoryBus(log),
	}
	f.leadSvc = leadsvc.New(f.leads, f.bus, log)
	identity := fakeIdentity{email: "front@clinic.test"}
	availability := calendarsvc.NewAvailabilityChecker(f.cal, identity, loc, nil, log)
	scheduler := calendarsvc.NewScheduler(f.cal, identity, nil, loc, nil, log)
	deduper := NewDeduper(nil, &memDeliveries{}, 15*time.Minute, log)
	f.router = NewRouter(f.leadSvc.Resolver(), f.leadSvc, availability, scheduler, deduper, f.bus, nil, log)

	f.bus.Subscribe(events.AppointmentBooked{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.booked = append(f.booked, e.(events.AppointmentBooked))
		return nil
	}))
	f.bus.Subscribe(events.CallEnded{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.ended = append(f.ended, e.(events.CallEnded))
		return nil
	}))
	return f
}

func (f *fixture) lead(t *testing.T, id uuid.UUID) (domain.Status, string) {
	t.Helper()
	l, ok := f.leads.Get(id)
	if !ok {
		t.Fatalf("lead %s not found", id)
	}
	return l.Status, f.leads.Notes(id)
}

func envelope(t *testing.T, msg map[string]any) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{"message": msg})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func toolCallBody(t *testing.T, userID, phone, fn, toolCallID string, args any) []byte {
	t.Helper()
	return envelope(t, map[string]any{
		"type":     TypeToolCalls,
		"customer": map[string]any{"number": phone, "name": "Jane Doe"},
		"call": map[string]any{
			"id":                 "call-1",
			"assistantOverrides": map[string]any{"variableValues": map[string]any{"userId": userID}},
		},
		"toolCalls": []any{map[string]any{
			"id":       toolCallID,
			"type":     "function",
			"function": map[string]any{"name": fn, "arguments": args},
		}},
	})
}

func endOfCallBody(t *testing.T, userID, phone, callID, reason, summary string) []byte {
	t.Helper()
	msg := map[string]any{
		"type":        TypeEndOfCallReport,
		"endedReason": reason,
		"call": map[string]any{
			"id":                 callID,
			"customer":           map[string]any{"number": phone},
			"assistantOverrides": map[string]any{"variableValues": map[string]any{"userId": userID}},
		},
	}
	if summary != "" {
		msg["analysis"] = map[string]any{"summary": summary}
	}
	return envelope(t, msg)
}

func singleResult(t *testing.T, resp Response) string {
	t.Helper()
	if len(resp.Results) != 1 {
		t.Fatalf("expected one tool result, got %+v", resp)
	}
	return resp.Results[0].Result
}

func TestBookingThenUnansweredReportKeepsBooked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	imported, err := f.leadSvc.ImportCSV(ctx, f.tenant, strings.NewReader("name,phone\nJane Doe,5551234567\n"))
	if err != nil || imported.Imported != 1 {
		t.Fatalf("ImportCSV = %+v, %v", imported, err)
	}
	leadID := imported.Leads[0].ID
	if status, _ := f.lead(t, leadID); status != domain.StatusPending {
		t.Fatalf("after upload status = %s", status)
	}

	if _, err := f.leadSvc.PrepareCall(ctx, f.tenant, "Jane Doe", "+15551234567", ""); err != nil {
		t.Fatalf("PrepareCall: %v", err)
	}
	if status, _ := f.lead(t, leadID); status != domain.StatusCalling {
		t.Fatalf("after call start status = %s", status)
	}

	resp := f.router.Handle(ctx, toolCallBody(t, f.tenant.String(), "+15551234567", "bookAppointment", "tc-1",
		`{"datetime":"2026-01-20T15:00:00-05:00"}`))
	if got := singleResult(t, resp); got != MsgBooked {
		t.Fatalf("result = %q", got)
	}
	if resp.Results[0].ToolCallID != "tc-1" {
		t.Errorf("toolCallId = %q", resp.Results[0].ToolCallID)
	}
	status, notes := f.lead(t, leadID)
	if status != domain.StatusBooked || notes != "Appointment: 2026-01-20T15:00:00-05:00. Notes: None" {
		t.Fatalf("after booking = %s / %q", status, notes)
	}
	if len(f.cal.inserted) != 1 {
		t.Fatalf("expected one calendar event, got %d", len(f.cal.inserted))
	}
	ev := f.cal.inserted[0]
	if ev.Start.DateTime != "2026-01-20T20:00:00Z" {
		t.Errorf("event start = %s", ev.Start.DateTime)
	}
	if !strings.Contains(ev.Description, "5551234567") {
		t.Errorf("event description = %q", ev.Description)
	}

	resp = f.router.Handle(ctx, endOfCallBody(t, f.tenant.String(), "+15551234567", "call-1", "customer-did-not-answer", "Customer agreed to a cleaning."))
	if resp.Message != MsgReceived {
		t.Fatalf("end of call response = %+v", resp)
	}
	status, notes = f.lead(t, leadID)
	if status != domain.StatusBooked {
		t.Fatalf("booked status regressed to %s", status)
	}
	if notes != "Call Ended (customer-did-not-answer). Summary: Customer agreed to a cleaning." {
		t.Fatalf("notes not updated: %q", notes)
	}

	f.bus.Wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.booked) != 1 || f.booked[0].CalendarLink != "https://calendar.test/ev-new" || *f.booked[0].LeadID != leadID {
		t.Errorf("booked events = %+v", f.booked)
	}
	if len(f.ended) != 1 || f.ended[0].Status != string(domain.StatusBooked) || len(f.ended[0].Raw) == 0 {
		t.Errorf("ended events = %+v", f.ended)
	}
}

func TestEndOfCallClassifiesUnbookedLead(t *testing.T) {
	tests := []struct {
		reason  string
		summary string
		want    domain.Status
		notes   string
	}{
		{"voicemail", "", domain.StatusVoicemail, "Call Ended (voicemail). Summary: No summary"},
		{"customer-did-not-answer", "", domain.StatusVoicemail, "Call Ended (customer-did-not-answer). Summary: No summary"},
		{"call-forwarding-detected", "", domain.StatusVoicemail, "Call Ended (call-forwarding-detected). Summary: No summary"},
		{"customer-ended-call", "Not interested right now.", domain.StatusPending, "Call Ended (customer-ended-call). Summary: Not interested right now."},
		{"assistant-ended-call", "", domain.StatusPending, "Call Ended (assistant-ended-call). Summary: No summary"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			f := newFixture(t)
			lead := f.leads.Seed(f.tenant, "John Roe", "+15557654321", domain.StatusCalling)

			f.router.Handle(context.Background(), endOfCallBody(t, f.tenant.String(), "+15557654321", "call-9", tt.reason, tt.summary))

			status, notes := f.lead(t, lead.ID)
			if status != tt.want || notes != tt.notes {
				t.Fatalf("got %s / %q, want %s / %q", status, notes, tt.want, tt.notes)
			}
		})
	}
}

func TestCheckAvailabilityTool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := f.tenant.String()

	resp := f.router.Handle(ctx, toolCallBody(t, tenant, "+15551234567", "checkAvailability", "tc-a", map[string]any{"date": "2026-01-20"}))
	if got := singleResult(t, resp); got != calendarsvc.MsgCalendarFree {
		t.Fatalf("empty calendar = %q", got)
	}

	f.cal.events = []google.Event{
		{Start: &google.EventTime{DateTime: "2026-01-20T10:00:00-05:00"}},
		{Start: &google.EventTime{DateTime: "2026-01-20T14:00:00-05:00"}},
	}
	first := singleResult(t, f.router.Handle(ctx, toolCallBody(t, tenant, "+15551234567", "checkAvailability", "tc-b", `{"date":"2026-01-20"}`)))
	if !strings.Contains(first, "10:00 AM") || !strings.Contains(first, "02:00 PM") {
		t.Fatalf("busy summary = %q", first)
	}
	second := singleResult(t, f.router.Handle(ctx, toolCallBody(t, tenant, "+15551234567", "checkAvailability", "tc-c", `{"date":"2026-01-20"}`)))
	if first != second {
		t.Fatalf("repeated check differs: %q vs %q", first, second)
	}

	if got := singleResult(t, f.router.Handle(ctx, toolCallBody(t, tenant, "+15551234567", "checkAvailability", "tc-d", map[string]any{}))); got != MsgDateMissing {
		t.Errorf("missing date = %q", got)
	}
	if got := singleResult(t, f.router.Handle(ctx, toolCallBody(t, "", "+15551234567", "checkAvailability", "tc-e", map[string]any{"date": "2026-01-20"}))); got != MsgIdentityMissing {
		t.Errorf("missing tenant = %q", got)
	}
}

func TestBookingWithoutTenantIdentity(t *testing.T) {
	f := newFixture(t)
	lead := f.leads.Seed(f.tenant, "Jane Doe", "+15551234567", domain.StatusCalling)

	resp := f.router.Handle(context.Background(), toolCallBody(t, "", "+15551234567", "bookAppointment", "tc-1",
		map[string]any{"datetime": "2026-01-20T15:00:00-05:00", "notes": "first visit"}))
	if got := singleResult(t, resp); got != MsgUserContextMissing {
		t.Fatalf("result = %q", got)
	}
	status, notes := f.lead(t, lead.ID)
	if status != domain.StatusBooked || notes != "Appointment: 2026-01-20T15:00:00-05:00. Notes: first visit" {
		t.Fatalf("lead = %s / %q", status, notes)
	}
	if len(f.cal.inserted) != 0 {
		t.Fatal("calendar must not be written without tenant identity")
	}
}

func TestRescheduleWithoutExistingEventBooksNewOne(t *testing.T) {
	f := newFixture(t)
	lead := f.leads.Seed(f.tenant, "Jane Doe", "+15551234567", domain.StatusBooked)

	resp := f.router.Handle(context.Background(), toolCallBody(t, f.tenant.String(), "+15551234567", "rescheduleAppointment", "tc-r",
		`{"datetime":"2026-01-22T09:30:00-05:00"}`))
	if got := singleResult(t, resp); got != MsgRescheduled {
		t.Fatalf("result = %q", got)
	}
	if len(f.cal.inserted) != 1 || len(f.cal.patched) != 0 {
		t.Fatalf("inserted %d, patched %d", len(f.cal.inserted), len(f.cal.patched))
	}
	status, notes := f.lead(t, lead.ID)
	if status != domain.StatusBooked || notes != "Rescheduled to: 2026-01-22T09:30:00-05:00." {
		t.Fatalf("lead = %s / %q", status, notes)
	}
}

func TestRescheduleMovesMatchingEvent(t *testing.T) {
	f := newFixture(t)
	f.leads.Seed(f.tenant, "Jane Doe", "+15551234567", domain.StatusBooked)
	f.cal.events = []google.Event{{ID: "ev-existing", Description: "Phone: +15551234567"}}

	f.router.Handle(context.Background(), toolCallBody(t, f.tenant.String(), "+15551234567", "rescheduleAppointment", "tc-r",
		`{"datetime":"2026-01-22T09:30:00-05:00"}`))
	if len(f.cal.patched) != 1 || f.cal.patched[0] != "ev-existing" || len(f.cal.inserted) != 0 {
		t.Fatalf("patched %v, inserted %d", f.cal.patched, len(f.cal.inserted))
	}
}

func TestRedeliveredBookingIsShortCircuited(t *testing.T) {
	f := newFixture(t)
	f.leads.Seed(f.tenant, "Jane Doe", "+15551234567", domain.StatusCalling)
	body := toolCallBody(t, f.tenant.String(), "+15551234567", "bookAppointment", "tc-dup", `{"datetime":"2026-01-20T15:00:00-05:00"}`)

	for i := 0; i < 3; i++ {
		if got := singleResult(t, f.router.Handle(context.Background(), body)); got != MsgBooked {
			t.Fatalf("delivery %d result = %q", i, got)
		}
	}
	if len(f.cal.inserted) != 1 {
		t.Fatalf("expected one calendar event, got %d", len(f.cal.inserted))
	}
}

func TestBookingsWithoutToolCallIDAreNotDeduplicated(t *testing.T) {
	f := newFixture(t)
	a := f.leads.Seed(f.tenant, "Jane Doe", "+15551234567", domain.StatusCalling)
	b := f.leads.Seed(f.tenant, "John Roe", "+15557654321", domain.StatusPending)

	for _, phone := range []string{"+15551234567", "+15557654321"} {
		body := toolCallBody(t, f.tenant.String(), phone, "bookAppointment", "", `{"datetime":"2026-01-20T15:00:00-05:00"}`)
		if got := singleResult(t, f.router.Handle(context.Background(), body)); got != MsgBooked {
			t.Fatalf("%s: result = %q", phone, got)
		}
	}
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		if status, _ := f.lead(t, id); status != domain.StatusBooked {
			t.Errorf("lead %s = %s, want Booked", id, status)
		}
	}
	if len(f.cal.inserted) != 2 {
		t.Fatalf("expected two calendar events, got %d", len(f.cal.inserted))
	}
}

func TestAmbiguousCallerLeavesLeadsUntouched(t *testing.T) {
	f := newFixture(t)
	a := f.leads.Seed(f.tenant, "Jane Doe", "(555) 123-4567", domain.StatusCalling)
	b := f.leads.Seed(f.tenant, "Jane Doe", "555-123-4567", domain.StatusPending)

	resp := f.router.Handle(context.Background(), toolCallBody(t, f.tenant.String(), "+15551234567", "bookAppointment", "tc-1",
		`{"datetime":"2026-01-20T15:00:00-05:00"}`))
	if got := singleResult(t, resp); got != MsgBooked {
		t.Fatalf("result = %q", got)
	}
	if status, _ := f.lead(t, a.ID); status != domain.StatusCalling {
		t.Errorf("lead a = %s", status)
	}
	if status, _ := f.lead(t, b.ID); status != domain.StatusPending {
		t.Errorf("lead b = %s", status)
	}
	if len(f.cal.inserted) != 1 {
		t.Errorf("calendar write should still happen, got %d", len(f.cal.inserted))
	}
}

func TestHandleAcknowledgesEverything(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", `{"message":`, MsgReceived},
		{"no message", `{}`, MsgNoMessage},
		{"no phone", `{"message":{"type":"end-of-call-report","endedReason":"voicemail"}}`, MsgNoCustomerPhone},
		{"other type", `{"message":{"type":"status-update","customer":{"number":"+15551234567"}}}`, MsgReceived},
		{"empty tool list", `{"message":{"type":"tool-calls","customer":{"number":"+15551234567"},"toolCalls":[]}}`, MsgReceived},
		{"unknown function", `{"message":{"type":"tool-calls","customer":{"number":"+15551234567"},"toolCalls":[{"id":"x","function":{"name":"transferCall","arguments":{}}}]}}`, MsgReceived},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.router.Handle(context.Background(), []byte(tt.body))
			if resp.Message != tt.want || len(resp.Results) != 0 {
				t.Fatalf("got %+v, want message %q", resp, tt.want)
			}
		})
	}
}
