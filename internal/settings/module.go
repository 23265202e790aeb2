// Package settings provides the tenant settings bounded context module.
package settings

import (
	apphttp "revive_backend/internal/http"
	"revive_backend/internal/settings/handler"
	"revive_backend/internal/settings/repository"
	"revive_backend/internal/settings/service"
	"revive_backend/platform/logger"
	"revive_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the settings bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "settings"
}

// Service returns the settings service that credential and calendar readers use.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/settings"))
}

var _ apphttp.Module = (*Module)(nil)
