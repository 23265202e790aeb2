// Package calendar provides the availability and appointment bounded context module.
package calendar

import (
	"context"

	"revive_backend/internal/calendar/google"
	"revive_backend/internal/calendar/handler"
	"revive_backend/internal/calendar/repository"
	"revive_backend/internal/calendar/service"
	apphttp "revive_backend/internal/http"
	"revive_backend/platform/config"
	"revive_backend/platform/logger"
	"revive_backend/platform/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the calendar bounded context module implementing http.Module.
type Module struct {
	handler      *handler.Handler
	availability *service.AvailabilityChecker
	scheduler    *service.Scheduler
}

// NewModule wires the calendar provider client. Missing credentials are logged and
// leave the module running; every provider call then reports the calendar as unavailable.
func NewModule(pool *pgxpool.Pool, cfg config.CalendarConfig, identity service.IdentitySource, rec *metrics.Recorder, log *logger.Logger) *Module {
	tokens, err := google.NewTokenSource(context.Background(), cfg)
	if err != nil {
		log.Warn("calendar credentials could not be loaded", "error", err)
		tokens = nil
	}
	if tokens == nil {
		log.Warn("no calendar credentials configured; calendar operations will fail closed")
	}

	client := google.NewClient(context.Background(), cfg, tokens, log)
	loc := service.LoadLocation(cfg.GetCalendarTimezone())

	availability := service.NewAvailabilityChecker(client, identity, loc, rec, log)
	scheduler := service.NewScheduler(client, identity, repository.New(pool), loc, rec, log)

	return &Module{
		handler:      handler.New(availability, scheduler, loc),
		availability: availability,
		scheduler:    scheduler,
	}
}

func (m *Module) Name() string {
	return "calendar"
}

// Availability returns the checker used by the webhook router.
func (m *Module) Availability() *service.AvailabilityChecker {
	return m.availability
}

// Scheduler returns the appointment writer used by the webhook router.
func (m *Module) Scheduler() *service.Scheduler {
	return m.scheduler
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/calendar"))
}

var _ apphttp.Module = (*Module)(nil)
