package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "revive_backend/internal/http"
	"revive_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type testConfig struct {
	metrics bool
}

func (testConfig) GetHTTPAddr() string        { return ":0" }
func (testConfig) GetCORSAllowAll() bool      { return false }
func (testConfig) GetCORSOrigins() []string   { return []string{"http://localhost:3000"} }
func (testConfig) GetCORSAllowCreds() bool    { return true }
func (testConfig) GetJWTAccessSecret() string { return "secret" }
func (c testConfig) IsMetricsEnabled() bool   { return c.metrics }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type echoModule struct{}

func (echoModule) Name() string { return "echo" }

func (echoModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/echo", func(c *gin.Context) { c.String(http.StatusOK, "public") })
	ctx.Protected.GET("/echo/private", func(c *gin.Context) { c.String(http.StatusOK, "private") })
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		health apphttp.HealthChecker
		want   int
	}{
		{name: "no checker", health: nil, want: http.StatusOK},
		{name: "database up", health: pinger{}, want: http.StatusOK},
		{name: "database down", health: pinger{err: errors.New("down")}, want: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := New(&apphttp.App{Config: testConfig{}, Logger: logger.Discard(), Health: tt.health})
			if rec := serve(engine, http.MethodGet, "/api/health"); rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestModuleRoutesAndAuth(t *testing.T) {
	engine := New(&apphttp.App{Config: testConfig{}, Logger: logger.Discard(), Modules: []apphttp.Module{echoModule{}}})

	if rec := serve(engine, http.MethodGet, "/api/v1/echo"); rec.Code != http.StatusOK {
		t.Fatalf("public route status = %d", rec.Code)
	}
	if rec := serve(engine, http.MethodGet, "/api/v1/echo/private"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("protected route without token status = %d", rec.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	engine := New(&apphttp.App{Config: testConfig{}, Logger: logger.Discard()})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
}

func TestMetricsToggle(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) })

	on := New(&apphttp.App{Config: testConfig{metrics: true}, Logger: logger.Discard(), Metrics: handler})
	if rec := serve(on, http.MethodGet, "/metrics"); rec.Code != http.StatusOK {
		t.Fatalf("metrics enabled status = %d", rec.Code)
	}

	off := New(&apphttp.App{Config: testConfig{}, Logger: logger.Discard(), Metrics: handler})
	if rec := serve(off, http.MethodGet, "/metrics"); rec.Code != http.StatusNotFound {
		t.Fatalf("metrics disabled status = %d", rec.Code)
	}
}
