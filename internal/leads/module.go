// Package leads owns the contact list: upload, listing, operator edits and the
// status transitions every other module writes through.
package leads

import (
	"revive_backend/internal/events"
	apphttp "revive_backend/internal/http"
	"revive_backend/internal/leads/handler"
	"revive_backend/internal/leads/repository"
	"revive_backend/internal/leads/service"
	"revive_backend/platform/logger"
	"revive_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), eventBus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "leads"
}

// Service is shared with the webhook and calls modules so status writes go
// through one transition table.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
}

var _ apphttp.Module = (*Module)(nil)
