package webhook

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apphttp "revive_backend/internal/http"
	"revive_backend/platform/httpkit"
	"revive_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func newTestEngine(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := NewRouter(nil, nil, nil, nil, nil, nil, nil, logger.Discard())
	engine := gin.New()
	engine.POST("/webhook/vapi", SecretAuthMiddleware(secret), NewHandler(router).HandleVapi)
	return engine
}

func TestWebhookSecret(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		header     string
		wantStatus int
	}{
		{"open when unset", "", "", http.StatusOK},
		{"matching secret", "s3cret", "s3cret", http.StatusOK},
		{"missing secret", "s3cret", "", http.StatusUnauthorized},
		{"wrong secret", "s3cret", "s3cret2", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhook/vapi", strings.NewReader(`{}`))
			if tt.header != "" {
				req.Header.Set(SecretHeader, tt.header)
			}
			w := httptest.NewRecorder()
			newTestEngine(tt.secret).ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestWebhookAlwaysAnswers200(t *testing.T) {
	engine := newTestEngine("")
	tests := []struct {
		body string
		want string
	}{
		{`not json`, `{"message":"Received"}`},
		{`{}`, `{"message":"No message found"}`},
		{`{"message":{"type":"tool-calls","toolCalls":[]}}`, `{"message":"No customer phone number found"}`},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/webhook/vapi", strings.NewReader(tt.body))
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tt.body, w.Code)
		}
		if strings.TrimSpace(w.Body.String()) != tt.want {
			t.Errorf("%s: body = %s", tt.body, w.Body.String())
		}
	}
}

func TestWebhookRouteAcknowledgesBursts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	v1 := engine.Group("/api/v1")
	module := &Module{handler: NewHandler(NewRouter(nil, nil, nil, nil, nil, nil, nil, logger.Discard()))}
	module.RegisterRoutes(&apphttp.RouterContext{
		Engine:          engine,
		V1:              v1,
		Protected:       v1.Group(""),
		CallRateLimiter: httpkit.NewIPRateLimiter(rate.Limit(0.001), 1, nil),
	})

	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/vapi", strings.NewReader(`{}`))
		req.RemoteAddr = "34.1.2.3:443"
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("delivery %d: status = %d", i, w.Code)
		}
	}
}
