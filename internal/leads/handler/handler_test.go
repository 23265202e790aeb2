package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"revive_backend/internal/events"
	"revive_backend/internal/leads/leadstest"
	"revive_backend/internal/leads/service"
	"revive_backend/platform/httpkit"
	"revive_backend/platform/logger"
	"revive_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newTestEngine(t *testing.T, tenant uuid.UUID) (*gin.Engine, *leadstest.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := leadstest.New()
	svc := service.New(store, events.NewInMemoryBus(logger.Discard()), logger.Discard())

	engine := gin.New()
	group := engine.Group("/leads", func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, tenant)
		c.Next()
	})
	New(svc, validator.New()).RegisterRoutes(group)
	return engine, store
}

func TestUploadThenList(t *testing.T) {
	tenant := uuid.New()
	engine, _ := newTestEngine(t, tenant)

	body := `{"leads":[{"name":"Jane Doe","phone":"5551234567"},{"name":"Bob","phone":"5559876543","interest":"Implants"}]}`
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/leads/upload", bytes.NewBufferString(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads", nil))
	var resp struct {
		Leads []LeadResponse `json:"leads"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Leads) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(resp.Leads))
	}
	for _, l := range resp.Leads {
		if l.Status != "Pending" {
			t.Errorf("lead %s status = %s", l.Name, l.Status)
		}
	}
}

func TestUploadRejectsEmptyList(t *testing.T) {
	engine, _ := newTestEngine(t, uuid.New())
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/leads/upload", bytes.NewBufferString(`{"leads":[]}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestImportCSVFile(t *testing.T) {
	engine, _ := newTestEngine(t, uuid.New())

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "leads.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("name,phone\nJane,5551234567\n"))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/leads/import", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteInvalidID(t *testing.T) {
	engine, _ := newTestEngine(t, uuid.New())
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/leads/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteUnknownLead(t *testing.T) {
	engine, _ := newTestEngine(t, uuid.New())
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/leads/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
