package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	subjectBookedFmt      = "New appointment: %s"
	subjectRescheduledFmt = "Appointment moved: %s"
)

type bookingEmailData struct {
	Title string
	Booking
}

func bookingSubject(b Booking) string {
	if b.Rescheduled {
		return fmt.Sprintf(subjectRescheduledFmt, b.CustomerName)
	}
	return fmt.Sprintf(subjectBookedFmt, b.CustomerName)
}

func renderBooking(b Booking) (string, error) {
	title := "New appointment booked"
	if b.Rescheduled {
		title = "Appointment rescheduled"
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "booking.html", bookingEmailData{Title: title, Booking: b}); err != nil {
		return "", fmt.Errorf("render booking email: %w", err)
	}
	return buf.String(), nil
}
