package adapters

import (
	"context"
	"errors"
	"strings"
	"testing"

	"revive_backend/internal/adapters/storage"
	"revive_backend/internal/events"
	"revive_backend/platform/logger"

	"github.com/google/uuid"
)

type memStore struct {
	objects map[string]storage.Object
	err     error
}

func (m *memStore) EnsureBucketExists(context.Context, string) error { return nil }

func (m *memStore) Put(_ context.Context, bucket string, obj storage.Object) error {
	if m.err != nil {
		return m.err
	}
	if m.objects == nil {
		m.objects = map[string]storage.Object{}
	}
	m.objects[bucket+"/"+obj.Key] = obj
	return nil
}

func TestReportKey(t *testing.T) {
	tenant := uuid.MustParse("6f1c2d3e-0000-4000-8000-000000000001")
	tests := []struct {
		name  string
		event events.CallEnded
		want  string
	}{
		{"tenant known", events.CallEnded{TenantID: &tenant, CallID: "call-1"}, "6f1c2d3e-0000-4000-8000-000000000001/call-1.json"},
		{"tenant unknown", events.CallEnded{CallID: "call-2"}, "unknown/call-2.json"},
		{"path characters", events.CallEnded{CallID: "../x/y"}, "unknown/.._x_y.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReportKey(tt.event); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}

	if got := ReportKey(events.CallEnded{}); !strings.HasPrefix(got, "unknown/no-call-id-") {
		t.Fatalf("missing call id key = %q", got)
	}
}

func TestArchiverStoresRawReport(t *testing.T) {
	store := &memStore{}
	a := NewCallReportArchiver(store, "call-reports", logger.Discard())
	bus := events.NewInMemoryBus(logger.Discard())
	a.RegisterHandlers(bus)

	raw := `{"message":{"type":"end-of-call-report"}}`
	lead := uuid.New()
	ev := events.CallEnded{CallID: "call-1", LeadID: &lead, EndedReason: "voicemail", Status: "Voicemail", Raw: []byte(raw)}
	if err := bus.PublishSync(context.Background(), ev); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	obj, ok := store.objects["call-reports/unknown/call-1.json"]
	if !ok || string(obj.Body) != raw || obj.ContentType != "application/json" {
		t.Fatalf("stored = %+v", obj)
	}
	if obj.Metadata["lead-id"] != lead.String() || obj.Metadata["ended-reason"] != "voicemail" || obj.Metadata["status"] != "Voicemail" {
		t.Errorf("metadata = %v", obj.Metadata)
	}
	if _, ok := obj.Metadata["tenant-id"]; ok {
		t.Errorf("tenant-id set without a tenant: %v", obj.Metadata)
	}
}

func TestArchiverSwallowsStorageErrors(t *testing.T) {
	a := NewCallReportArchiver(&memStore{err: errors.New("bucket gone")}, "call-reports", logger.Discard())
	if err := a.Handle(context.Background(), events.CallEnded{CallID: "call-1", Raw: []byte(`{}`)}); err != nil {
		t.Fatalf("Handle returned %v", err)
	}
}
