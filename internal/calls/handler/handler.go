package handler

import (
	"context"
	"net/http"

	"revive_backend/internal/calls/service"
	"revive_backend/platform/httpkit"
	"revive_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

// CallStarter starts a single outbound call.
type CallStarter interface {
	InitiateCall(ctx context.Context, tenantID uuid.UUID, in service.InitiateCallInput) (service.CallResult, error)
}

// CampaignStarter queues a bulk dial of pending leads.
type CampaignStarter interface {
	Start(ctx context.Context, tenantID uuid.UUID, limit int) (int, error)
}

type Handler struct {
	calls     CallStarter
	campaigns CampaignStarter
	val       *validator.Validator
}

func New(calls CallStarter, campaigns CampaignStarter, val *validator.Validator) *Handler {
	return &Handler{calls: calls, campaigns: campaigns, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Initiate)
	rg.POST("/campaign", h.Campaign)
}

type CampaignRequest struct {
	Limit int `json:"limit" validate:"min=0"`
}

func (h *Handler) Initiate(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	var req service.InitiateCallInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	res, err := h.calls.InitiateCall(c.Request.Context(), id.TenantID(), req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"success": true, "data": res})
}

func (h *Handler) Campaign(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	var req CampaignRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	queued, err := h.campaigns.Start(c.Request.Context(), id.TenantID(), req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Accepted(c, gin.H{"success": true, "queued": queued})
}
