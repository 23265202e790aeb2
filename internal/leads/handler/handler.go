package handler

import (
	"net/http"
	"time"

	"revive_backend/internal/leads/domain"
	"revive_backend/internal/leads/repository"
	"revive_backend/internal/leads/service"
	"revive_backend/platform/httpkit"
	"revive_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest = "invalid request"
	msgInvalidLeadID  = "Invalid lead ID"
	maxImportBytes    = 5 << 20
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.DELETE("", h.DeleteAll)
	rg.GET("/stats", h.Stats)
	rg.POST("/upload", h.Upload)
	rg.POST("/import", h.Import)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.DELETE("/:id", h.Delete)
}

type LeadResponse struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	Phone         string        `json:"phone"`
	Status        domain.Status `json:"status"`
	Notes         *string       `json:"notes"`
	Interest      *string       `json:"interest"`
	LastContacted *time.Time    `json:"lastContacted"`
	CreatedAt     time.Time     `json:"createdAt"`
}

func toResponse(l repository.Lead) LeadResponse {
	return LeadResponse{
		ID:            l.ID,
		Name:          l.Name,
		Phone:         l.Phone,
		Status:        l.Status,
		Notes:         l.Notes,
		Interest:      l.Interest,
		LastContacted: l.LastContacted,
		CreatedAt:     l.CreatedAt,
	}
}

func toResponses(leads []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, toResponse(l))
	}
	return out
}

type UploadRequest struct {
	Leads []service.UploadLead `json:"leads" validate:"required,min=1,dive"`
}

type UpdateStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes"`
}

func (h *Handler) List(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leads, err := h.svc.List(c.Request.Context(), id.TenantID(), c.Query("status"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"leads": toResponses(leads)})
}

func (h *Handler) Stats(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	stats, err := h.svc.Stats(c.Request.Context(), id.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stats)
}

func (h *Handler) Upload(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	leads, err := h.svc.Upload(c.Request.Context(), id.TenantID(), req.Leads)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"success": true, "count": len(leads), "leads": toResponses(leads)})
}

func (h *Handler) Import(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "a CSV file is required in the \"file\" field", nil)
		return
	}
	if fileHeader.Size > maxImportBytes {
		httpkit.Error(c, http.StatusBadRequest, "CSV file is too large", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	defer file.Close()

	result, err := h.svc.ImportCSV(c.Request.Context(), id.TenantID(), file)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"success": true, "count": result.Imported, "skipped": result.Skipped, "leads": toResponses(result.Leads)})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	lead, err := h.svc.SetStatus(c.Request.Context(), id.TenantID(), leadID, req.Status, req.Notes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(lead))
}

func (h *Handler) Delete(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id.TenantID(), leadID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"success": true})
}

func (h *Handler) DeleteAll(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	n, err := h.svc.DeleteAll(c.Request.Context(), id.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"success": true, "deleted": n})
}
