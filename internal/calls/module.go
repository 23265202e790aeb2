// Package calls provides the outbound calling bounded context module.
package calls

import (
	"revive_backend/internal/callprovider"
	"revive_backend/internal/calls/handler"
	"revive_backend/internal/calls/service"
	"revive_backend/internal/events"
	apphttp "revive_backend/internal/http"
	leadsvc "revive_backend/internal/leads/service"
	"revive_backend/internal/scheduler"
	settingssvc "revive_backend/internal/settings/service"
	"revive_backend/platform/logger"
	"revive_backend/platform/metrics"
	"revive_backend/platform/validator"
)

// Module is the calls bounded context module implementing http.Module.
type Module struct {
	handler   *handler.Handler
	initiator *service.Initiator
	campaigns *service.Campaigns
}

// NewModule wires the initiator. A nil queue makes campaigns run inside the API process.
func NewModule(
	provider *callprovider.Client,
	settings *settingssvc.Service,
	leads *leadsvc.Service,
	queue scheduler.CampaignScheduler,
	concurrency int,
	eventBus events.Bus,
	val *validator.Validator,
	rec *metrics.Recorder,
	log *logger.Logger,
) *Module {
	initiator := service.NewInitiator(settings, leads, provider, eventBus, rec, log)
	campaigns := service.NewCampaigns(initiator, leads, queue, concurrency, log)
	return &Module{
		handler:   handler.New(initiator, campaigns, val),
		initiator: initiator,
		campaigns: campaigns,
	}
}

func (m *Module) Name() string {
	return "calls"
}

// Campaigns returns the campaign runner the scheduler worker dials through.
func (m *Module) Campaigns() *service.Campaigns {
	return m.campaigns
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/calls")
	if ctx.CallRateLimiter != nil {
		group.Use(ctx.CallRateLimiter.RateLimit())
	}
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
