package http

import (
	"context"
	"net/http"

	"revive_backend/platform/config"
	"revive_backend/platform/logger"
)

type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
	config.MetricsConfig
}

// HealthChecker backs /api/health; in production it pings Postgres.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is everything router.New needs. A nil Health always reports ok and a nil
// Metrics handler leaves /metrics unmounted.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Metrics http.Handler
	Modules []Module
}
