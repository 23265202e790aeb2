// Package callprovider is the HTTP client for the Vapi voice platform.
// Every method takes the tenant's own private key; the client holds no credentials.
package callprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"revive_backend/platform/config"
	"revive_backend/platform/logger"
)

const defaultBaseURL = "https://api.vapi.ai"

type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(cfg config.CallProviderConfig, log *logger.Logger) *Client {
	baseURL := strings.TrimRight(cfg.GetVapiBaseURL(), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.GetProviderTimeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// APIError is a non-2xx answer from the provider. Message is safe to show to the operator.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

type Customer struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
}

type AssistantOverrides struct {
	VariableValues map[string]string `json:"variableValues,omitempty"`
}

type CreateCallRequest struct {
	AssistantID        string              `json:"assistantId"`
	PhoneNumberID      string              `json:"phoneNumberId"`
	Customer           Customer            `json:"customer"`
	AssistantOverrides *AssistantOverrides `json:"assistantOverrides,omitempty"`
}

type Call struct {
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Customer Customer `json:"customer"`
}

type PhoneNumber struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	AssistantID string `json:"assistantId,omitempty"`
}

type Assistant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateAssistantRequest is the subset of the assistant schema this backend sets.
type CreateAssistantRequest struct {
	Name                   string          `json:"name"`
	FirstMessage           string          `json:"firstMessage"`
	FirstMessageMode       string          `json:"firstMessageMode,omitempty"`
	Model                  AssistantModel  `json:"model"`
	Voice                  *AssistantVoice `json:"voice,omitempty"`
	ServerURL              string          `json:"serverUrl,omitempty"`
	ServerSecret           string          `json:"serverUrlSecret,omitempty"`
	EndCallFunctionEnabled bool            `json:"endCallFunctionEnabled"`
	RecordingEnabled       bool            `json:"recordingEnabled"`
	SilenceTimeoutSeconds  int             `json:"silenceTimeoutSeconds,omitempty"`
	MaxDurationSeconds     int             `json:"maxDurationSeconds,omitempty"`
}

type AssistantModel struct {
	Provider string          `json:"provider"`
	Model    string          `json:"model"`
	Messages []ModelMessage  `json:"messages"`
	Tools    []AssistantTool `json:"tools,omitempty"`
}

type ModelMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AssistantVoice struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
	Model    string `json:"model,omitempty"`
}

type AssistantTool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
	Server   *ToolServer  `json:"server,omitempty"`
}

type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ToolServer struct {
	URL string `json:"url"`
}

// CreateCall starts an outbound call.
func (c *Client) CreateCall(ctx context.Context, apiKey string, req CreateCallRequest) (Call, error) {
	var call Call
	err := c.do(ctx, apiKey, http.MethodPost, "/call", req, &call)
	return call, err
}

// ListPhoneNumbers returns the numbers owned by the key's organisation.
func (c *Client) ListPhoneNumbers(ctx context.Context, apiKey string) ([]PhoneNumber, error) {
	var numbers []PhoneNumber
	err := c.do(ctx, apiKey, http.MethodGet, "/phone-number", nil, &numbers)
	return numbers, err
}

func (c *Client) CreateAssistant(ctx context.Context, apiKey string, req CreateAssistantRequest) (Assistant, error) {
	var assistant Assistant
	err := c.do(ctx, apiKey, http.MethodPost, "/assistant", req, &assistant)
	return assistant, err
}

// PatchPhoneNumber attaches an assistant to an existing number.
func (c *Client) PatchPhoneNumber(ctx context.Context, apiKey, phoneNumberID, assistantID string) (PhoneNumber, error) {
	var number PhoneNumber
	body := map[string]string{"assistantId": assistantID}
	err := c.do(ctx, apiKey, http.MethodPatch, "/phone-number/"+phoneNumberID, body, &number)
	return number, err
}

func (c *Client) do(ctx context.Context, apiKey, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal vapi payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("vapi request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read vapi response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
		c.log.WithContext(ctx).ProviderError("vapi", method+" "+path, apiErr)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode vapi response: %w", err)
	}
	return nil
}

// errorMessage prefers the provider's "message" field, then "error", then the status.
// Vapi sometimes sends "message" as a list of validation messages.
func errorMessage(status int, data []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if msg := flattenMessage(payload.Message); msg != "" {
			return msg
		}
		if msg := flattenMessage(payload.Error); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("API error: %d", status)
}

func flattenMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.TrimSpace(strings.Join(list, "; "))
	}
	return ""
}
