// Package email delivers transactional email to tenants.
package email

import (
	"context"

	"revive_backend/platform/config"
)

// Booking describes an appointment the voice agent just booked or moved.
type Booking struct {
	CustomerName string
	Phone        string
	When         string
	Rescheduled  bool
	CalendarLink string
}

type Sender interface {
	SendBookingNotification(ctx context.Context, toEmail string, booking Booking) error
}

// NoopSender is used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendBookingNotification(context.Context, string, Booking) error {
	return nil
}

// NewSender returns the SMTP sender, or NoopSender when SMTP is not configured.
func NewSender(cfg config.SMTPConfig) Sender {
	if !cfg.IsSMTPEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
