// Package prompt renders the voice assistant's instructions and tool schemas.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"revive_backend/internal/callprovider"

	"gopkg.in/yaml.v3"
)

//go:embed industries.yaml system_prompt.tmpl
var assets embed.FS

const todayLayout = "Monday, January 2, 2006"

// Profile is everything the prompt is parametrised with.
type Profile struct {
	AgentName          string
	AgentRole          string
	BusinessName       string
	Industry           string
	HoursStart         string
	HoursEnd           string
	CancellationPolicy string
	CustomKnowledge    string
}

type industry struct {
	Name string `yaml:"name"`
	Goal string `yaml:"goal"`
}

type catalogFile struct {
	Default    string     `yaml:"default"`
	Industries []industry `yaml:"industries"`
}

// Builder holds the parsed catalogue and template.
type Builder struct {
	goals       map[string]string
	defaultGoal string
	tmpl        *template.Template
}

// NewBuilder parses the embedded industry catalogue and prompt template.
func NewBuilder() (*Builder, error) {
	raw, err := assets.ReadFile("industries.yaml")
	if err != nil {
		return nil, err
	}
	var catalog catalogFile
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("parse industries: %w", err)
	}

	goals := make(map[string]string, len(catalog.Industries))
	for _, ind := range catalog.Industries {
		goals[strings.ToLower(ind.Name)] = ind.Goal
	}
	defaultGoal, ok := goals[strings.ToLower(catalog.Default)]
	if !ok {
		return nil, fmt.Errorf("default industry %q missing from catalogue", catalog.Default)
	}

	tmpl, err := template.ParseFS(assets, "system_prompt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}

	return &Builder{goals: goals, defaultGoal: defaultGoal, tmpl: tmpl}, nil
}

// Industries lists the catalogue keys, lower-cased.
func (b *Builder) Industries() []string {
	out := make([]string, 0, len(b.goals))
	for name := range b.goals {
		out = append(out, name)
	}
	return out
}

// Goal returns the industry goal phrase, falling back to the default industry.
func (b *Builder) Goal(industryName string) string {
	if goal, ok := b.goals[strings.ToLower(strings.TrimSpace(industryName))]; ok {
		return goal
	}
	return b.defaultGoal
}

// SystemPrompt renders the assistant's system message. today is shown in its own location.
func (b *Builder) SystemPrompt(p Profile, today time.Time) (string, error) {
	data := struct {
		Profile
		Goal     string
		HasHours bool
		Today    string
	}{
		Profile:  p,
		Goal:     b.Goal(p.Industry),
		HasHours: p.HoursStart != "" && p.HoursEnd != "",
		Today:    today.Format(todayLayout),
	}

	var buf bytes.Buffer
	if err := b.tmpl.ExecuteTemplate(&buf, "system_prompt.tmpl", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FirstMessage is spoken when the customer picks up. {{customer.name}} is filled in by the provider.
func FirstMessage(agentName, businessName string) string {
	return fmt.Sprintf("Hi {{customer.name}}, this is %s calling from %s. How are you doing today?", agentName, businessName)
}

// Tools returns the function schemas the assistant may call, all pointing at webhookURL.
func Tools(webhookURL string) []callprovider.AssistantTool {
	server := &callprovider.ToolServer{URL: webhookURL}
	return []callprovider.AssistantTool{
		{
			Type: "function",
			Function: callprovider.ToolFunction{
				Name:        "checkAvailability",
				Description: "Check the calendar availability for a specific date. Use this before booking to see what times are open.",
				Parameters: objectSchema(map[string]any{
					"date": stringProp("The date to check availability for, in YYYY-MM-DD format (e.g., 2026-01-20)"),
				}, "date"),
			},
			Server: server,
		},
		{
			Type: "function",
			Function: callprovider.ToolFunction{
				Name:        "bookAppointment",
				Description: "Book an appointment for the customer. Only use this after confirming the date and time with the customer.",
				Parameters: objectSchema(map[string]any{
					"datetime": stringProp("The full date and time for the appointment in ISO 8601 format with a UTC offset (e.g., 2026-01-20T10:00:00-05:00)"),
					"notes":    stringProp("Any additional notes about the appointment (e.g., 'cleaning and checkup', 'first visit in 2 years')"),
				}, "datetime"),
			},
			Server: server,
		},
		{
			Type: "function",
			Function: callprovider.ToolFunction{
				Name:        "rescheduleAppointment",
				Description: "Move the customer's existing appointment to a new date and time. Only use this after confirming the new time with the customer.",
				Parameters: objectSchema(map[string]any{
					"datetime": stringProp("The new date and time in ISO 8601 format with a UTC offset (e.g., 2026-01-21T09:30:00-05:00)"),
				}, "datetime"),
			},
			Server: server,
		},
	}
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}
