package webhook

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Message types the router acts on. Anything else is acknowledged and ignored.
const (
	TypeToolCalls       = "tool-calls"
	TypeEndOfCallReport = "end-of-call-report"
	userIDVariable      = "userId"
	unknownCustomerName = "Unknown Customer"
)

// Envelope is the provider's webhook body.
type Envelope struct {
	Message *Message `json:"message"`
}

type Message struct {
	Type               string              `json:"type"`
	Customer           *Customer           `json:"customer,omitempty"`
	Call               *Call               `json:"call,omitempty"`
	ToolCalls          []ToolCall          `json:"toolCalls,omitempty"`
	AssistantOverrides *AssistantOverrides `json:"assistantOverrides,omitempty"`
	EndedReason        string              `json:"endedReason,omitempty"`
	Analysis           *Analysis           `json:"analysis,omitempty"`
}

type Customer struct {
	Number string `json:"number"`
	Name   string `json:"name"`
}

type Call struct {
	ID                 string              `json:"id"`
	Customer           *Customer           `json:"customer,omitempty"`
	AssistantOverrides *AssistantOverrides `json:"assistantOverrides,omitempty"`
}

type AssistantOverrides struct {
	VariableValues map[string]any `json:"variableValues,omitempty"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction carries Arguments as raw JSON: the agent sends either an object or a
// JSON-encoded string.
type ToolFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type Analysis struct {
	Summary string `json:"summary"`
}

// ToolArgs are the union of the arguments our tools accept.
type ToolArgs struct {
	Date     string `json:"date"`
	Datetime string `json:"datetime"`
	Notes    string `json:"notes"`
}

// DecodeArgs never fails; unreadable arguments decode to the zero value.
func DecodeArgs(raw json.RawMessage) ToolArgs {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ToolArgs{}
	}
	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return ToolArgs{}
		}
		raw = []byte(encoded)
	}
	var args ToolArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return ToolArgs{}
	}
	args.Date = strings.TrimSpace(args.Date)
	args.Datetime = strings.TrimSpace(args.Datetime)
	args.Notes = strings.TrimSpace(args.Notes)
	return args
}

// RequestContext is everything the router needs to know about who the event concerns.
// TenantID is nil when the assistant did not carry a usable userId variable.
type RequestContext struct {
	TenantID    *uuid.UUID
	CallerPhone string
	CallerName  string
	CallID      string
	RawUserID   string
}

// ResolveContext applies the precedence rules once: message-level customer before
// call-level customer, call-level overrides before message-level overrides.
func ResolveContext(msg *Message) RequestContext {
	var rc RequestContext
	if msg == nil {
		return rc
	}

	var callCustomer *Customer
	var callOverrides *AssistantOverrides
	if msg.Call != nil {
		rc.CallID = msg.Call.ID
		callCustomer = msg.Call.Customer
		callOverrides = msg.Call.AssistantOverrides
	}

	rc.CallerPhone = firstNonEmpty(customerField(msg.Customer, customerNumber), customerField(callCustomer, customerNumber))
	rc.CallerName = firstNonEmpty(customerField(msg.Customer, customerName), customerField(callCustomer, customerName), unknownCustomerName)

	rc.RawUserID = firstNonEmpty(variable(callOverrides, userIDVariable), variable(msg.AssistantOverrides, userIDVariable))
	if id, err := uuid.Parse(rc.RawUserID); err == nil && id != uuid.Nil {
		rc.TenantID = &id
	}
	return rc
}

func customerNumber(c *Customer) string { return c.Number }
func customerName(c *Customer) string   { return c.Name }

func customerField(c *Customer, get func(*Customer) string) string {
	if c == nil {
		return ""
	}
	return get(c)
}

func variable(o *AssistantOverrides, key string) string {
	if o == nil || o.VariableValues == nil {
		return ""
	}
	s, _ := o.VariableValues[key].(string)
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
