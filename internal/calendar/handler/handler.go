// Package handler exposes the manual calendar test path used from the dashboard.
package handler

import (
	"context"
	"net/http"
	"time"

	"revive_backend/internal/calendar/service"
	"revive_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	testLeadName     = "Test Booking"
	testLeadPhone    = "+15551234567"
	testBookingClock = "T14:00:00"

	msgInvalidAction = "Invalid action. Use ?action=check or ?action=book"
	msgFailedToBook  = "Failed to book"
)

// AvailabilityService answers day availability questions.
type AvailabilityService interface {
	CheckAvailability(ctx context.Context, tenantID uuid.UUID, date string) string
}

// BookingService writes appointments to the tenant's calendar.
type BookingService interface {
	Schedule(ctx context.Context, req service.ScheduleRequest) (string, bool)
}

type Handler struct {
	availability AvailabilityService
	booking      BookingService
	loc          *time.Location
	now          func() time.Time
}

func New(availability AvailabilityService, booking BookingService, loc *time.Location) *Handler {
	return &Handler{availability: availability, booking: booking, loc: loc, now: time.Now}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/test", h.Test)
}

type TestResponse struct {
	Success bool   `json:"success"`
	Action  string `json:"action"`
	Date    string `json:"date"`
	Result  string `json:"result"`
}

// Test runs either an availability check or a throwaway booking for the caller's tenant.
func (h *Handler) Test(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	action := c.DefaultQuery("action", "check")
	date := c.Query("date")
	if date == "" {
		date = h.now().In(h.loc).Format("2006-01-02")
	}

	switch action {
	case "check":
		result := h.availability.CheckAvailability(c.Request.Context(), id.TenantID(), date)
		httpkit.OK(c, TestResponse{Success: true, Action: "checkAvailability", Date: date, Result: result})
	case "book":
		link, ok := h.booking.Schedule(c.Request.Context(), service.ScheduleRequest{
			Action:   service.ActionCreate,
			TenantID: id.TenantID(),
			LeadName: testLeadName,
			Phone:    testLeadPhone,
			Datetime: date + testBookingClock,
		})
		result := link
		if !ok {
			result = msgFailedToBook
		}
		httpkit.OK(c, TestResponse{Success: ok, Action: "bookAppointment", Date: date, Result: result})
	default:
		httpkit.Error(c, http.StatusBadRequest, msgInvalidAction, nil)
	}
}
