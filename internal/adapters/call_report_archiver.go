// Package adapters holds glue between bounded contexts and infrastructure adapters.
package adapters

import (
	"context"
	"path"
	"strings"

	"revive_backend/internal/adapters/storage"
	"revive_backend/internal/events"
	"revive_backend/platform/logger"

	"github.com/google/uuid"
)

const unknownTenantFolder = "unknown"

// CallReportArchiver stores every raw end-of-call report as <tenant|unknown>/<callId>.json.
// Failures are logged and never reach the webhook response.
type CallReportArchiver struct {
	store  storage.ObjectStore
	bucket string
	log    *logger.Logger
}

func NewCallReportArchiver(store storage.ObjectStore, bucket string, log *logger.Logger) *CallReportArchiver {
	return &CallReportArchiver{store: store, bucket: bucket, log: log}
}

func (a *CallReportArchiver) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.CallEnded{}.EventName(), a)
}

func (a *CallReportArchiver) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.CallEnded)
	if !ok || len(e.Raw) == 0 {
		return nil
	}
	key := ReportKey(e)
	err := a.store.Put(ctx, a.bucket, storage.Object{
		Key:         key,
		ContentType: "application/json",
		Body:        e.Raw,
		Metadata:    reportMetadata(e),
	})
	if err != nil {
		a.log.WithContext(ctx).ProviderError("minio", "archive_call_report", err)
		return nil
	}
	a.log.WithContext(ctx).Debug("call report archived", "key", key)
	return nil
}

// ReportKey is the object key for a call report.
func ReportKey(e events.CallEnded) string {
	folder := unknownTenantFolder
	if e.TenantID != nil {
		folder = e.TenantID.String()
	}
	callID := strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(e.CallID))
	if callID == "" {
		ref := e.ID
		if ref == "" {
			ref = uuid.NewString()
		}
		callID = "no-call-id-" + ref
	}
	return path.Join(folder, callID+".json")
}

func reportMetadata(e events.CallEnded) map[string]string {
	meta := map[string]string{
		"call-id":      e.CallID,
		"ended-reason": e.EndedReason,
		"status":       e.Status,
	}
	if e.TenantID != nil {
		meta["tenant-id"] = e.TenantID.String()
	}
	if e.LeadID != nil {
		meta["lead-id"] = e.LeadID.String()
	}
	return meta
}
