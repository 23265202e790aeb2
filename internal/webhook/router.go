package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	calendarsvc "revive_backend/internal/calendar/service"
	"revive_backend/internal/events"
	"revive_backend/internal/leads/domain"
	leadrepo "revive_backend/internal/leads/repository"
	leadsvc "revive_backend/internal/leads/service"
	"revive_backend/platform/logger"
	"revive_backend/platform/metrics"

	"github.com/google/uuid"
)

// Sentences returned to the voice agent.
const (
	MsgReceived           = "Received"
	MsgNoMessage          = "No message found"
	MsgNoCustomerPhone    = "No customer phone number found"
	MsgDateMissing        = "Error: Date parameter missing. You must ask the user for a specific date before checking availability."
	MsgIdentityMissing    = "Configuration Error: User identification missing."
	MsgUserContextMissing = "Error: User context missing."
	MsgBooked             = "Appointment confirmed and added to calendar."
	MsgRescheduled        = "Appointment successfully rescheduled."

	fnCheckAvailability = "checkAvailability"
	fnBookAppointment   = "bookAppointment"
	fnReschedule        = "rescheduleAppointment"
	unspecified         = "Unspecified"
)

// Reasons the provider reports when nobody picked up.
var unansweredReasons = map[string]bool{
	"voicemail":                true,
	"customer-did-not-answer":  true,
	"call-forwarding-detected": true,
}

// LeadResolver maps a caller number to a stored lead.
type LeadResolver interface {
	Resolve(ctx context.Context, tenantID *uuid.UUID, rawPhone string) (leadrepo.LeadRef, error)
}

// LeadTransitioner writes status and notes through the transition table.
type LeadTransitioner interface {
	Transition(ctx context.Context, in leadsvc.TransitionInput) (leadsvc.TransitionResult, error)
}

type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, tenantID uuid.UUID, date string) string
}

type AppointmentScheduler interface {
	Schedule(ctx context.Context, req calendarsvc.ScheduleRequest) (string, bool)
}

// DeliveryClaimer short-circuits repeated deliveries.
type DeliveryClaimer interface {
	Claim(ctx context.Context, key string) (bool, error)
}

// ToolResult answers one tool invocation.
type ToolResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result"`
}

// Response is the webhook body: Results for tool calls, Message for everything else.
type Response struct {
	Results []ToolResult `json:"results,omitempty"`
	Message string       `json:"message,omitempty"`
}

func ack(message string) Response {
	return Response{Message: message}
}

func toolResponse(toolCallID, result string) Response {
	return Response{Results: []ToolResult{{ToolCallID: toolCallID, Result: result}}}
}

// Router turns provider events into lead transitions and calendar writes. It never
// returns an error: every failure is logged and answered with a benign response.
type Router struct {
	resolver     LeadResolver
	leads        LeadTransitioner
	availability AvailabilityChecker
	scheduler    AppointmentScheduler
	dedupe       DeliveryClaimer
	bus          events.Bus
	metrics      *metrics.Recorder
	now          func() time.Time
	log          *logger.Logger
}

func NewRouter(
	resolver LeadResolver,
	leads LeadTransitioner,
	availability AvailabilityChecker,
	scheduler AppointmentScheduler,
	dedupe DeliveryClaimer,
	bus events.Bus,
	rec *metrics.Recorder,
	log *logger.Logger,
) *Router {
	return &Router{
		resolver:     resolver,
		leads:        leads,
		availability: availability,
		scheduler:    scheduler,
		dedupe:       dedupe,
		bus:          bus,
		metrics:      rec,
		now:          time.Now,
		log:          log,
	}
}

// Handle processes one raw delivery.
func (r *Router) Handle(ctx context.Context, body []byte) (resp Response) {
	log := r.log.WithContext(ctx)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("webhook handler panicked", "panic", fmt.Sprint(rec))
			r.metrics.WebhookEvent("unknown", "panic")
			resp = ack(MsgReceived)
		}
	}()

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.Warn("webhook body is not valid JSON", "error", err)
		r.metrics.WebhookEvent("unknown", "malformed")
		return ack(MsgReceived)
	}
	if env.Message == nil {
		r.metrics.WebhookEvent("unknown", "no_message")
		return ack(MsgNoMessage)
	}

	msg := env.Message
	rc := ResolveContext(msg)
	if rc.CallerPhone == "" {
		r.observe(log, msg.Type, rc.CallID, "no_phone")
		return ack(MsgNoCustomerPhone)
	}
	if rc.TenantID == nil && rc.RawUserID != "" {
		log.Warn("assistant userId variable is not a tenant id", "userId", rc.RawUserID)
	}

	switch msg.Type {
	case TypeToolCalls:
		if rc.TenantID == nil {
			log.Warn("tenant identity missing on tool call; calendar operations will be skipped")
		}
		if len(msg.ToolCalls) == 0 {
			r.observe(log, msg.Type, rc.CallID, "no_tool_call")
			return ack(MsgReceived)
		}
		return r.handleToolCall(ctx, rc, msg.ToolCalls[0])
	case TypeEndOfCallReport:
		r.handleEndOfCall(ctx, rc, msg, body)
		return ack(MsgReceived)
	default:
		r.observe(log, msg.Type, rc.CallID, "ignored")
		return ack(MsgReceived)
	}
}

func (r *Router) observe(log *logger.Logger, eventType, callID, outcome string) {
	if eventType == "" {
		eventType = "unknown"
	}
	log.WebhookEvent(eventType, callID, outcome)
	r.metrics.WebhookEvent(eventType, outcome)
}

// claim reports whether the delivery should run. Storage errors let it run, and
// an empty key means the delivery carries no id to deduplicate on.
func (r *Router) claim(ctx context.Context, key string) bool {
	if r.dedupe == nil || key == "" {
		return true
	}
	first, err := r.dedupe.Claim(ctx, key)
	if err != nil {
		r.log.WithContext(ctx).Warn("webhook dedupe failed open", "key", key, "error", err)
		return true
	}
	return first
}

func toolCallKey(id string) string {
	if id == "" {
		return ""
	}
	return "tool:" + id
}

func (r *Router) handleToolCall(ctx context.Context, rc RequestContext, call ToolCall) Response {
	log := r.log.WithContext(ctx)
	args := DecodeArgs(call.Function.Arguments)
	eventType := TypeToolCalls + ":" + call.Function.Name

	switch call.Function.Name {
	case fnCheckAvailability:
		if args.Date == "" {
			r.observe(log, eventType, rc.CallID, "missing_date")
			return toolResponse(call.ID, MsgDateMissing)
		}
		if rc.TenantID == nil {
			r.observe(log, eventType, rc.CallID, "missing_tenant")
			return toolResponse(call.ID, MsgIdentityMissing)
		}
		result := r.availability.CheckAvailability(ctx, *rc.TenantID, args.Date)
		r.observe(log, eventType, rc.CallID, "answered")
		return toolResponse(call.ID, result)

	case fnBookAppointment:
		if !r.claim(ctx, toolCallKey(call.ID)) {
			r.observe(log, eventType, rc.CallID, "duplicate")
			if rc.TenantID == nil {
				return toolResponse(call.ID, MsgUserContextMissing)
			}
			return toolResponse(call.ID, MsgBooked)
		}
		notes := fmt.Sprintf("Appointment: %s. Notes: %s", orDefault(args.Datetime, unspecified), orDefault(args.Notes, "None"))
		r.book(ctx, rc, args, notes, calendarsvc.ActionCreate)
		if rc.TenantID == nil {
			r.observe(log, eventType, rc.CallID, "missing_tenant")
			return toolResponse(call.ID, MsgUserContextMissing)
		}
		r.observe(log, eventType, rc.CallID, "booked")
		return toolResponse(call.ID, MsgBooked)

	case fnReschedule:
		if !r.claim(ctx, toolCallKey(call.ID)) {
			r.observe(log, eventType, rc.CallID, "duplicate")
			return toolResponse(call.ID, MsgRescheduled)
		}
		notes := fmt.Sprintf("Rescheduled to: %s.", orDefault(args.Datetime, unspecified))
		r.book(ctx, rc, args, notes, calendarsvc.ActionUpdate)
		r.observe(log, eventType, rc.CallID, "rescheduled")
		return toolResponse(call.ID, MsgRescheduled)

	default:
		r.observe(log, eventType, rc.CallID, "unknown_function")
		return ack(MsgReceived)
	}
}

// book marks the lead Booked and then writes the calendar when it can.
func (r *Router) book(ctx context.Context, rc RequestContext, args ToolArgs, notes string, action calendarsvc.Action) {
	ref, found := r.resolve(ctx, rc)
	tenantID := rc.TenantID
	var leadID *uuid.UUID
	if found {
		leadID = &ref.ID
		tenantID = &ref.TenantID
		r.transition(ctx, leadsvc.TransitionInput{
			TenantID: &ref.TenantID,
			LeadID:   ref.ID,
			To:       domain.StatusBooked,
			Cause:    domain.CauseBooking,
			Notes:    &notes,
		})
	}

	var link string
	if args.Datetime != "" && rc.TenantID != nil {
		link, _ = r.scheduler.Schedule(ctx, calendarsvc.ScheduleRequest{
			Action:   action,
			TenantID: *rc.TenantID,
			LeadID:   leadID,
			LeadName: rc.CallerName,
			Phone:    rc.CallerPhone,
			Datetime: args.Datetime,
		})
	}

	if r.bus != nil && (found || rc.TenantID != nil) {
		r.bus.Publish(ctx, events.AppointmentBooked{
			BaseEvent:    events.NewBaseEvent(),
			TenantID:     tenantID,
			LeadID:       leadID,
			CustomerName: rc.CallerName,
			Phone:        rc.CallerPhone,
			Datetime:     args.Datetime,
			Rescheduled:  action == calendarsvc.ActionUpdate,
			CalendarLink: link,
		})
	}
}

func (r *Router) handleEndOfCall(ctx context.Context, rc RequestContext, msg *Message, body []byte) {
	log := r.log.WithContext(ctx)
	if rc.CallID != "" && !r.claim(ctx, "eoc:"+rc.CallID) {
		r.observe(log, TypeEndOfCallReport, rc.CallID, "duplicate")
		return
	}

	status := EndedStatus(msg.EndedReason)
	summary := "No summary"
	if msg.Analysis != nil && msg.Analysis.Summary != "" {
		summary = msg.Analysis.Summary
	}
	notes := fmt.Sprintf("Call Ended (%s). Summary: %s", msg.EndedReason, summary)

	outcome := "unmatched"
	ended := events.CallEnded{
		BaseEvent:   events.NewBaseEvent(),
		TenantID:    rc.TenantID,
		CallID:      rc.CallID,
		EndedReason: msg.EndedReason,
		EndedAt:     r.now().UTC(),
		Raw:         json.RawMessage(body),
	}

	if ref, found := r.resolve(ctx, rc); found {
		ended.TenantID = &ref.TenantID
		ended.LeadID = &ref.ID
		res, ok := r.transition(ctx, leadsvc.TransitionInput{
			TenantID: &ref.TenantID,
			LeadID:   ref.ID,
			To:       status,
			Cause:    domain.CauseCallEnded,
			Notes:    &notes,
		})
		switch {
		case !ok:
			outcome = "write_failed"
		case res.Applied:
			outcome = string(status)
			ended.Status = string(res.To)
		default:
			outcome = "held_" + string(res.From)
			ended.Status = string(res.From)
		}
	}

	r.observe(log, TypeEndOfCallReport, rc.CallID, outcome)
	if r.bus != nil {
		r.bus.Publish(ctx, ended)
	}
}

// EndedStatus classifies a provider ended reason.
func EndedStatus(reason string) domain.Status {
	if unansweredReasons[reason] {
		return domain.StatusVoicemail
	}
	return domain.StatusPending
}

func (r *Router) resolve(ctx context.Context, rc RequestContext) (leadrepo.LeadRef, bool) {
	log := r.log.WithContext(ctx)
	ref, err := r.resolver.Resolve(ctx, rc.TenantID, rc.CallerPhone)
	switch {
	case err == nil:
		return ref, true
	case errors.Is(err, leadsvc.ErrNoMatch):
		log.Warn("no lead matches caller", "phone", rc.CallerPhone, "callId", rc.CallID)
	case errors.Is(err, leadsvc.ErrAmbiguousMatch):
		log.Warn("caller matches several leads; status left unchanged", "phone", rc.CallerPhone, "callId", rc.CallID)
	default:
		log.DatabaseError("leads.resolve", err)
	}
	return leadrepo.LeadRef{}, false
}

func (r *Router) transition(ctx context.Context, in leadsvc.TransitionInput) (leadsvc.TransitionResult, bool) {
	res, err := r.leads.Transition(ctx, in)
	if err != nil {
		r.log.WithContext(ctx).DatabaseError("leads.transition", err)
		return leadsvc.TransitionResult{}, false
	}
	return res, true
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
