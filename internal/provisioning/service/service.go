// Package service creates a tenant's voice assistant, links it to the tenant's phone
// number and stores the resulting ids in settings.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"revive_backend/internal/callprovider"
	"revive_backend/internal/provisioning/prompt"
	settingssvc "revive_backend/internal/settings/service"
	"revive_backend/platform/apperr"
	"revive_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultAgentName = "Sarah"
	defaultAgentRole = "Assistant"
	defaultIndustry  = "General"

	assistantNameLimit = 40

	msgKeyRequired          = "Vapi Private Key is required."
	msgBusinessNameRequired = "Business Name is required. Please fill in your business details first."
	msgNoPhoneNumber        = "No phone number found on your Vapi account. Go to vapi.ai → Dashboard → Phone Numbers → Buy a phone number, then try again."
	msgReady                = "%s is ready! Your AI %s for %s has been created and linked to your phone number."
)

// AssistantAPI is the provider surface used during provisioning.
type AssistantAPI interface {
	CreateAssistant(ctx context.Context, apiKey string, req callprovider.CreateAssistantRequest) (callprovider.Assistant, error)
	ListPhoneNumbers(ctx context.Context, apiKey string) ([]callprovider.PhoneNumber, error)
	PatchPhoneNumber(ctx context.Context, apiKey, phoneNumberID, assistantID string) (callprovider.PhoneNumber, error)
}

// SettingsStore reads the saved business profile and records the provisioned ids.
type SettingsStore interface {
	Profile(ctx context.Context, tenantID uuid.UUID) (settingssvc.BusinessProfile, error)
	SaveProvisioned(ctx context.Context, tenantID uuid.UUID, privateKey, assistantID, phoneNumberID string, profile settingssvc.BusinessProfile) error
}

// Request comes from the provisioning form. Empty optional fields fall back to the
// saved business profile, then to defaults.
type Request struct {
	VapiPrivateKey   string `json:"vapiPrivateKey" validate:"required"`
	BusinessName     string `json:"businessName"`
	BusinessIndustry string `json:"businessIndustry"`
	AgentName        string `json:"agentName"`
	AgentRole        string `json:"agentRole"`
}

type Result struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	AssistantID   string `json:"assistantId"`
	PhoneNumberID string `json:"phoneNumberId"`
}

// Options are the deployment-wide assistant settings.
type Options struct {
	WebhookURL    string
	WebhookSecret string
	Location      *time.Location
}

type Service struct {
	api      AssistantAPI
	settings SettingsStore
	prompts  *prompt.Builder
	opts     Options
	now      func() time.Time
	log      *logger.Logger
}

func New(api AssistantAPI, settings SettingsStore, prompts *prompt.Builder, opts Options, log *logger.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{api: api, settings: settings, prompts: prompts, opts: opts, now: time.Now, log: log}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Provision runs the create assistant, pick number, link, save sequence. A failure at
// any provider step stops the sequence and nothing is saved.
func (s *Service) Provision(ctx context.Context, tenantID uuid.UUID, req Request) (Result, error) {
	log := s.log.WithContext(ctx)

	key := strings.TrimSpace(req.VapiPrivateKey)
	if key == "" {
		return Result{}, apperr.Validation(msgKeyRequired)
	}

	saved, err := s.settings.Profile(ctx, tenantID)
	if err != nil {
		return Result{}, err
	}
	profile := saved
	profile.BusinessName = firstNonEmpty(req.BusinessName, saved.BusinessName)
	profile.BusinessIndustry = firstNonEmpty(req.BusinessIndustry, saved.BusinessIndustry, defaultIndustry)
	profile.AgentName = firstNonEmpty(req.AgentName, saved.AgentName, defaultAgentName)
	profile.AgentRole = firstNonEmpty(req.AgentRole, saved.AgentRole, defaultAgentRole)
	if profile.BusinessName == "" {
		return Result{}, apperr.Validation(msgBusinessNameRequired)
	}

	systemPrompt, err := s.prompts.SystemPrompt(prompt.Profile{
		AgentName:          profile.AgentName,
		AgentRole:          profile.AgentRole,
		BusinessName:       profile.BusinessName,
		Industry:           profile.BusinessIndustry,
		HoursStart:         profile.BusinessHoursStart,
		HoursEnd:           profile.BusinessHoursEnd,
		CancellationPolicy: profile.CancellationPolicy,
		CustomKnowledge:    profile.CustomKnowledge,
	}, s.now().In(s.opts.Location))
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to render assistant prompt", err)
	}

	log.Info("provisioning assistant", "tenantId", tenantID, "keyPreview", keyPreview(key))

	assistant, err := s.api.CreateAssistant(ctx, key, callprovider.CreateAssistantRequest{
		Name:             truncate(profile.BusinessName, assistantNameLimit),
		FirstMessage:     prompt.FirstMessage(profile.AgentName, profile.BusinessName),
		FirstMessageMode: "assistant-waits-for-user",
		Model: callprovider.AssistantModel{
			Provider: "openai",
			Model:    "gpt-4o",
			Messages: []callprovider.ModelMessage{{Role: "system", Content: systemPrompt}},
			Tools:    prompt.Tools(s.opts.WebhookURL),
		},
		Voice: &callprovider.AssistantVoice{
			Provider: "11labs",
			VoiceID:  "cgSgspJ2msm6clMCkdW9",
			Model:    "eleven_turbo_v2_5",
		},
		ServerURL:              s.opts.WebhookURL,
		ServerSecret:           s.opts.WebhookSecret,
		EndCallFunctionEnabled: true,
		RecordingEnabled:       true,
		SilenceTimeoutSeconds:  30,
		MaxDurationSeconds:     600,
	})
	if err != nil {
		return Result{}, apperr.Upstream(fmt.Sprintf("Failed to create assistant: %s", providerMessage(err)), err)
	}

	numbers, err := s.api.ListPhoneNumbers(ctx, key)
	if err != nil {
		return Result{}, apperr.Upstream(fmt.Sprintf("Failed to fetch phone numbers: %s", providerMessage(err)), err)
	}
	if len(numbers) == 0 || numbers[0].ID == "" {
		return Result{}, apperr.Configuration(msgNoPhoneNumber)
	}
	phoneNumberID := numbers[0].ID

	if _, err := s.api.PatchPhoneNumber(ctx, key, phoneNumberID, assistant.ID); err != nil {
		return Result{}, apperr.Upstream(fmt.Sprintf("Failed to link assistant to phone: %s", providerMessage(err)), err)
	}

	if err := s.settings.SaveProvisioned(ctx, tenantID, key, assistant.ID, phoneNumberID, profile); err != nil {
		log.DatabaseError("settings.save_provisioned", err)
		return Result{}, apperr.Wrap(apperr.KindInternal, "Configuration created but failed to save.", err)
	}

	log.Info("assistant provisioned", "tenantId", tenantID, "assistantId", assistant.ID, "phoneNumberId", phoneNumberID)
	return Result{
		Success:       true,
		Message:       fmt.Sprintf(msgReady, profile.AgentName, profile.AgentRole, profile.BusinessName),
		AssistantID:   assistant.ID,
		PhoneNumberID: phoneNumberID,
	}, nil
}

func providerMessage(err error) string {
	var apiErr *callprovider.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func keyPreview(key string) string {
	if len(key) <= 8 {
		return "..."
	}
	return key[:8] + "..."
}
