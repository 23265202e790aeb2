package handler

import (
	"context"
	"net/http"

	"revive_backend/internal/provisioning/service"
	"revive_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

// Provisioner sets up the tenant's assistant.
type Provisioner interface {
	Provision(ctx context.Context, tenantID uuid.UUID, req service.Request) (service.Result, error)
}

type Handler struct {
	svc Provisioner
}

func New(svc Provisioner) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Provision)
}

func (h *Handler) Provision(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	var req service.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	res, err := h.svc.Provision(c.Request.Context(), id.TenantID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, res)
}
