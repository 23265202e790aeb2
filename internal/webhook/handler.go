package webhook

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	router *Router
}

func NewHandler(router *Router) *Handler {
	return &Handler{router: router}
}

// HandleVapi answers every delivery with 200 so the provider never retries.
// POST /api/v1/webhook/vapi
func (h *Handler) HandleVapi(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		h.router.log.WithContext(c.Request.Context()).Warn("webhook body unreadable", "error", err)
		c.JSON(http.StatusOK, ack(MsgReceived))
		return
	}
	c.JSON(http.StatusOK, h.router.Handle(c.Request.Context(), body))
}
