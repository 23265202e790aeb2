package email

import (
	"strings"
	"testing"
)

func TestRenderBooking(t *testing.T) {
	tests := []struct {
		name        string
		booking     Booking
		wantSubject string
		wantBody    []string
		notInBody   string
	}{
		{
			name:        "new booking with link",
			booking:     Booking{CustomerName: "Jane <Doe>", Phone: "+15551234567", When: "Tue, Jan 20 at 03:00 PM", CalendarLink: "https://calendar.test/ev"},
			wantSubject: "New appointment: Jane <Doe>",
			wantBody:    []string{"New appointment booked", "Jane &lt;Doe&gt;", "+15551234567", `href="https://calendar.test/ev"`},
		},
		{
			name:        "reschedule without link",
			booking:     Booking{CustomerName: "Jane", Phone: "+15551234567", When: "Wed", Rescheduled: true},
			wantSubject: "Appointment moved: Jane",
			wantBody:    []string{"Appointment rescheduled", "moved an appointment"},
			notInBody:   "Open in calendar",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bookingSubject(tt.booking); got != tt.wantSubject {
				t.Errorf("subject = %q", got)
			}
			body, err := renderBooking(tt.booking)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			for _, want := range tt.wantBody {
				if !strings.Contains(body, want) {
					t.Errorf("body missing %q", want)
				}
			}
			if tt.notInBody != "" && strings.Contains(body, tt.notInBody) {
				t.Errorf("body should not contain %q", tt.notInBody)
			}
		})
	}
}

func TestSMTPMessageRecipients(t *testing.T) {
	s := NewSMTPSender("smtp.test", 587, "", "", "noreply@revive.test", "Revive")
	if _, err := s.message("owner@clinic.test", "New appointment: Jane", "<p>hi</p>"); err != nil {
		t.Fatalf("message: %v", err)
	}
	if _, err := s.message("not an address", "x", "y"); err == nil {
		t.Error("expected invalid recipient to fail")
	}
}

type smtpConfig struct {
	host, from string
}

func (c smtpConfig) GetSMTPHost() string         { return c.host }
func (c smtpConfig) GetSMTPPort() int            { return 587 }
func (c smtpConfig) GetSMTPUsername() string     { return "" }
func (c smtpConfig) GetSMTPPassword() string     { return "" }
func (c smtpConfig) GetEmailFromName() string    { return "Revive" }
func (c smtpConfig) GetEmailFromAddress() string { return c.from }
func (c smtpConfig) IsSMTPEnabled() bool         { return c.host != "" && c.from != "" }

func TestNewSenderPicksTransport(t *testing.T) {
	if _, ok := NewSender(smtpConfig{}).(NoopSender); !ok {
		t.Fatal("expected NoopSender without SMTP host")
	}
	if _, ok := NewSender(smtpConfig{host: "smtp.test", from: "noreply@revive.test"}).(*SMTPSender); !ok {
		t.Fatal("expected SMTPSender when configured")
	}
}
