// Package provisioning provides the assistant provisioning bounded context module.
package provisioning

import (
	"revive_backend/internal/callprovider"
	apphttp "revive_backend/internal/http"
	"revive_backend/internal/provisioning/handler"
	"revive_backend/internal/provisioning/prompt"
	"revive_backend/internal/provisioning/service"
	settingssvc "revive_backend/internal/settings/service"
	"revive_backend/platform/logger"
)

// Module is the provisioning bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

func NewModule(api *callprovider.Client, settings *settingssvc.Service, opts service.Options, log *logger.Logger) (*Module, error) {
	prompts, err := prompt.NewBuilder()
	if err != nil {
		return nil, err
	}
	svc := service.New(api, settings, prompts, opts, log)
	return &Module{handler: handler.New(svc)}, nil
}

func (m *Module) Name() string {
	return "provisioning"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/provision"))
}

var _ apphttp.Module = (*Module)(nil)
