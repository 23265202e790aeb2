package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskBookingNotification = "appointments.booking_notification"

const TaskCallCampaign = "calls.campaign"

type BookingNotificationPayload struct {
	TenantID     string `json:"tenantId"`
	LeadID       string `json:"leadId,omitempty"`
	CustomerName string `json:"customerName"`
	Phone        string `json:"phone"`
	Datetime     string `json:"datetime"`
	Rescheduled  bool   `json:"rescheduled"`
	CalendarLink string `json:"calendarLink,omitempty"`
}

type CallCampaignPayload struct {
	TenantID string `json:"tenantId"`
	// Limit caps how many pending leads are dialled; zero dials all of them.
	Limit int `json:"limit,omitempty"`
}

func NewBookingNotificationTask(payload BookingNotificationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBookingNotification, data), nil
}

func ParseBookingNotificationPayload(task *asynq.Task) (BookingNotificationPayload, error) {
	var payload BookingNotificationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return BookingNotificationPayload{}, err
	}
	return payload, nil
}

func NewCallCampaignTask(payload CallCampaignPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCallCampaign, data), nil
}

func ParseCallCampaignPayload(task *asynq.Task) (CallCampaignPayload, error) {
	var payload CallCampaignPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CallCampaignPayload{}, err
	}
	return payload, nil
}
