package prompt

import (
	"strings"
	"testing"
	"time"
)

func TestGoalFallsBackToGeneral(t *testing.T) {
	b, err := NewBuilder()
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	tests := map[string]string{
		"Dental":       "scheduling them for a cleaning or checkup appointment",
		"salon/spa":    "booking their next appointment",
		"Pet Grooming": "scheduling an appointment or consultation",
		"":             "scheduling an appointment or consultation",
	}
	for industry, want := range tests {
		if got := b.Goal(industry); got != want {
			t.Errorf("Goal(%q) = %q, want %q", industry, got, want)
		}
	}
}

func TestSystemPromptSections(t *testing.T) {
	b, err := NewBuilder()
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	today := time.Date(2026, 1, 19, 9, 0, 0, 0, time.UTC)

	plain, err := b.SystemPrompt(Profile{AgentName: "Sarah", AgentRole: "Assistant", BusinessName: "Bright Smiles", Industry: "Dental"}, today)
	if err != nil {
		t.Fatalf("SystemPrompt: %v", err)
	}
	for _, want := range []string{
		"You are Sarah, the friendly and professional Assistant at Bright Smiles.",
		"by scheduling them for a cleaning or checkup appointment.",
		"Today is Monday, January 19, 2026.",
	} {
		if !strings.Contains(plain, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(plain, "## Business Hours") || strings.Contains(plain, "## Cancellation Policy") {
		t.Error("optional sections rendered without data")
	}

	full, err := b.SystemPrompt(Profile{
		AgentName: "Sam", AgentRole: "Coordinator", BusinessName: "Bright Smiles", Industry: "Dental",
		HoursStart: "9:00 AM", HoursEnd: "5:00 PM", CancellationPolicy: "24 hours notice.", CustomKnowledge: "Free parking.",
	}, today)
	if err != nil {
		t.Fatalf("SystemPrompt: %v", err)
	}
	for _, want := range []string{"from 9:00 AM to 5:00 PM", "24 hours notice.", "## About Bright Smiles\nFree parking."} {
		if !strings.Contains(full, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestToolsPointAtWebhook(t *testing.T) {
	tools := Tools("https://api.example.test/api/v1/webhook/vapi")
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Function.Name)
		if tool.Server == nil || tool.Server.URL != "https://api.example.test/api/v1/webhook/vapi" {
			t.Errorf("%s server = %+v", tool.Function.Name, tool.Server)
		}
	}
	if strings.Join(names, ",") != "checkAvailability,bookAppointment,rescheduleAppointment" {
		t.Fatalf("tools = %v", names)
	}
	if FirstMessage("Sarah", "Bright Smiles") != "Hi {{customer.name}}, this is Sarah calling from Bright Smiles. How are you doing today?" {
		t.Fatalf("first message = %q", FirstMessage("Sarah", "Bright Smiles"))
	}
}
