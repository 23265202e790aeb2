package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"revive_backend/internal/callprovider"
	"revive_backend/internal/provisioning/prompt"
	"revive_backend/internal/settings/repository"
	settingssvc "revive_backend/internal/settings/service"
	"revive_backend/internal/settings/settingstest"
	"revive_backend/platform/apperr"
	"revive_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeAssistantAPI struct {
	createErr error
	listErr   error
	patchErr  error
	numbers   []callprovider.PhoneNumber

	created []callprovider.CreateAssistantRequest
	linked  []string
}

func (f *fakeAssistantAPI) CreateAssistant(_ context.Context, _ string, req callprovider.CreateAssistantRequest) (callprovider.Assistant, error) {
	f.created = append(f.created, req)
	if f.createErr != nil {
		return callprovider.Assistant{}, f.createErr
	}
	return callprovider.Assistant{ID: "asst_1", Name: req.Name}, nil
}

func (f *fakeAssistantAPI) ListPhoneNumbers(context.Context, string) ([]callprovider.PhoneNumber, error) {
	return f.numbers, f.listErr
}

func (f *fakeAssistantAPI) PatchPhoneNumber(_ context.Context, _, phoneNumberID, assistantID string) (callprovider.PhoneNumber, error) {
	f.linked = append(f.linked, phoneNumberID+"->"+assistantID)
	if f.patchErr != nil {
		return callprovider.PhoneNumber{}, f.patchErr
	}
	return callprovider.PhoneNumber{ID: phoneNumberID, AssistantID: assistantID}, nil
}

func newService(t *testing.T, api AssistantAPI, store *settingstest.Store) *Service {
	t.Helper()
	prompts, err := prompt.NewBuilder()
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	svc := New(api, settingssvc.New(store, logger.Discard()), prompts, Options{
		WebhookURL:    "https://api.example.test/api/v1/webhook/vapi",
		WebhookSecret: "hook-secret",
	}, logger.Discard())
	svc.now = func() time.Time { return time.Date(2026, 1, 19, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestProvisionSuccess(t *testing.T) {
	tenant := uuid.New()
	store := settingstest.New()
	store.Put(repository.Settings{
		TenantID:         tenant,
		BusinessName:     settingstest.Ptr("Bright Smiles Dental Clinic of Greater Springfield"),
		BusinessIndustry: settingstest.Ptr("Dental"),
	})
	api := &fakeAssistantAPI{numbers: []callprovider.PhoneNumber{{ID: "pn_1"}, {ID: "pn_2"}}}

	res, err := newService(t, api, store).Provision(context.Background(), tenant, Request{VapiPrivateKey: "sk_live_123456789"})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if !res.Success || res.AssistantID != "asst_1" || res.PhoneNumberID != "pn_1" {
		t.Fatalf("result = %+v", res)
	}
	if res.Message != "Sarah is ready! Your AI Assistant for Bright Smiles Dental Clinic of Greater Springfield has been created and linked to your phone number." {
		t.Errorf("message = %q", res.Message)
	}

	req := api.created[0]
	if len([]rune(req.Name)) != 40 {
		t.Errorf("assistant name %q not truncated to 40", req.Name)
	}
	if req.ServerURL != "https://api.example.test/api/v1/webhook/vapi" || req.ServerSecret != "hook-secret" {
		t.Errorf("server = %q / %q", req.ServerURL, req.ServerSecret)
	}
	if len(req.Model.Tools) != 3 || !strings.Contains(req.Model.Messages[0].Content, "cleaning or checkup") {
		t.Errorf("model = %+v", req.Model)
	}
	if len(api.linked) != 1 || api.linked[0] != "pn_1->asst_1" {
		t.Errorf("linked = %v", api.linked)
	}

	saved, _ := store.Get(context.Background(), tenant)
	if *saved.VapiPrivateKey != "sk_live_123456789" || *saved.VapiAssistantID != "asst_1" || *saved.VapiPhoneNumberID != "pn_1" {
		t.Errorf("saved = %+v", saved)
	}
	if *saved.AgentName != "Sarah" || *saved.AgentRole != "Assistant" {
		t.Errorf("defaults not persisted: %q %q", *saved.AgentName, *saved.AgentRole)
	}
}

func TestProvisionFailures(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		api      *fakeAssistantAPI
		wantKind apperr.Kind
		wantMsg  string
	}{
		{
			name:     "missing key",
			req:      Request{BusinessName: "Acme"},
			api:      &fakeAssistantAPI{},
			wantKind: apperr.KindValidation,
			wantMsg:  msgKeyRequired,
		},
		{
			name:     "missing business name",
			req:      Request{VapiPrivateKey: "sk"},
			api:      &fakeAssistantAPI{},
			wantKind: apperr.KindValidation,
			wantMsg:  msgBusinessNameRequired,
		},
		{
			name:     "create rejected",
			req:      Request{VapiPrivateKey: "sk", BusinessName: "Acme"},
			api:      &fakeAssistantAPI{createErr: &callprovider.APIError{StatusCode: 401, Message: "Invalid Key"}},
			wantKind: apperr.KindUpstream,
			wantMsg:  "Failed to create assistant: Invalid Key",
		},
		{
			name:     "no phone numbers",
			req:      Request{VapiPrivateKey: "sk", BusinessName: "Acme"},
			api:      &fakeAssistantAPI{},
			wantKind: apperr.KindConfiguration,
			wantMsg:  msgNoPhoneNumber,
		},
		{
			name:     "link rejected",
			req:      Request{VapiPrivateKey: "sk", BusinessName: "Acme"},
			api:      &fakeAssistantAPI{numbers: []callprovider.PhoneNumber{{ID: "pn_1"}}, patchErr: errors.New("connection reset")},
			wantKind: apperr.KindUpstream,
			wantMsg:  "Failed to link assistant to phone: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenant := uuid.New()
			store := settingstest.New()
			_, err := newService(t, tt.api, store).Provision(context.Background(), tenant, tt.req)

			var appErr *apperr.Error
			if !errors.As(err, &appErr) {
				t.Fatalf("expected app error, got %v", err)
			}
			if appErr.Kind != tt.wantKind || appErr.Message != tt.wantMsg {
				t.Fatalf("got %v %q, want %v %q", appErr.Kind, appErr.Message, tt.wantKind, tt.wantMsg)
			}
			if _, err := store.Get(context.Background(), tenant); !errors.Is(err, repository.ErrNotFound) {
				t.Fatal("nothing should be saved after a failure")
			}
		})
	}
}
