// Package google is a minimal Google Calendar v3 REST client covering the
// list, insert and patch calls the scheduler needs.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"revive_backend/platform/config"
	"revive_backend/platform/logger"

	"golang.org/x/oauth2"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

var ErrNotConfigured = errors.New("calendar credentials not configured")

// EventTime is either a timed start/end or an all-day date.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type Event struct {
	ID          string     `json:"id,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Description string     `json:"description,omitempty"`
	HTMLLink    string     `json:"htmlLink,omitempty"`
	Start       *EventTime `json:"start,omitempty"`
	End         *EventTime `json:"end,omitempty"`
}

// ListOptions maps to the events.list query parameters used here.
type ListOptions struct {
	TimeMin      time.Time
	TimeMax      time.Time
	Query        string
	SingleEvents bool
	OrderBy      string
	TimeZone     string
}

// APIError is a non-2xx answer from the calendar API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calendar api returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 or 410 from the calendar API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusGone
}

type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// NewClient builds a client whose requests are authorised by tokens. tokens may be
// nil, in which case every call fails with ErrNotConfigured.
func NewClient(ctx context.Context, cfg config.CalendarConfig, tokens oauth2.TokenSource, log *logger.Logger) *Client {
	baseURL := strings.TrimRight(cfg.GetCalendarBaseURL(), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.GetProviderTimeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	var httpClient *http.Client
	if tokens != nil {
		httpClient = oauth2.NewClient(ctx, tokens)
		httpClient.Timeout = timeout
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		log:     log,
	}
}

func (c *Client) eventsURL(calendarID string) string {
	return c.baseURL + "/calendars/" + url.PathEscape(calendarID) + "/events"
}

func (c *Client) ListEvents(ctx context.Context, calendarID string, opts ListOptions) ([]Event, error) {
	q := url.Values{}
	if !opts.TimeMin.IsZero() {
		q.Set("timeMin", opts.TimeMin.UTC().Format(time.RFC3339))
	}
	if !opts.TimeMax.IsZero() {
		q.Set("timeMax", opts.TimeMax.UTC().Format(time.RFC3339))
	}
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}
	if opts.SingleEvents {
		q.Set("singleEvents", "true")
	}
	if opts.OrderBy != "" {
		q.Set("orderBy", opts.OrderBy)
	}
	if opts.TimeZone != "" {
		q.Set("timeZone", opts.TimeZone)
	}

	var out struct {
		Items []Event `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, c.eventsURL(calendarID)+"?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) InsertEvent(ctx context.Context, calendarID string, event Event) (Event, error) {
	var created Event
	err := c.do(ctx, http.MethodPost, c.eventsURL(calendarID), event, &created)
	return created, err
}

func (c *Client) PatchEvent(ctx context.Context, calendarID, eventID string, patch Event) (Event, error) {
	var updated Event
	err := c.do(ctx, http.MethodPatch, c.eventsURL(calendarID)+"/"+url.PathEscape(eventID), patch, &updated)
	return updated, err
}

func (c *Client) do(ctx context.Context, method, target string, payload, out any) error {
	if c.http == nil {
		return ErrNotConfigured
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal calendar payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calendar request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read calendar response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode calendar response: %w", err)
	}
	return nil
}
