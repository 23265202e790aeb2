// Package domain provides core business rules for the leads bounded context.
package domain

import "fmt"

// Status is the closed set of lead call statuses.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCalling   Status = "Calling"
	StatusContacted Status = "Contacted"
	StatusBooked    Status = "Booked"
	StatusVoicemail Status = "Voicemail"
	StatusFailed    Status = "Failed"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{
	StatusPending, StatusCalling, StatusContacted, StatusBooked, StatusVoicemail, StatusFailed,
}

// ParseStatus validates a status string.
func ParseStatus(raw string) (Status, error) {
	for _, s := range AllStatuses {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown lead status %q", raw)
}

// Cause identifies which path is writing a status.
type Cause string

const (
	CauseUpload      Cause = "upload"
	CauseCallStarted Cause = "call_started"
	CauseCallFailed  Cause = "call_failed"
	CauseBooking     Cause = "booking"
	CauseCallEnded   Cause = "call_ended"
	CauseManual      Cause = "manual"
)

// transitions lists, per cause, the source statuses a write may move away from.
// A source missing from the set keeps its status; the caller still records notes.
var transitions = map[Cause]map[Status]bool{
	// Booking always wins.
	CauseBooking: set(StatusPending, StatusCalling, StatusContacted, StatusBooked, StatusVoicemail, StatusFailed),
	// Booked is sticky against end-of-call inference.
	CauseCallEnded: set(StatusPending, StatusCalling, StatusContacted, StatusVoicemail, StatusFailed),
	// Re-uploading a list resets everything except confirmed bookings.
	CauseUpload: set(StatusPending, StatusCalling, StatusContacted, StatusVoicemail, StatusFailed),
	// Operators may deliberately re-call anyone.
	CauseCallStarted: set(StatusPending, StatusCalling, StatusContacted, StatusBooked, StatusVoicemail, StatusFailed),
	// Compensation only ever undoes the optimistic Calling write.
	CauseCallFailed: set(StatusCalling),
}

var targets = map[Cause]map[Status]bool{
	CauseBooking:     set(StatusBooked),
	CauseCallEnded:   set(StatusVoicemail, StatusPending, StatusContacted),
	CauseUpload:      set(StatusPending),
	CauseCallStarted: set(StatusCalling),
	CauseCallFailed:  set(StatusFailed),
}

func set(statuses ...Status) map[Status]bool {
	m := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		m[s] = true
	}
	return m
}

// CanTransition reports whether cause may move a lead from one status to another.
// Manual edits may set any known status.
func CanTransition(from, to Status, cause Cause) bool {
	if cause == CauseManual {
		_, err := ParseStatus(string(to))
		return err == nil
	}
	if !targets[cause][to] {
		return false
	}
	return transitions[cause][from]
}

// AllowedSources returns the statuses cause may move away from when writing to.
// Stores use it to make the check and the write a single conditional update.
func AllowedSources(to Status, cause Cause) []Status {
	out := make([]Status, 0, len(AllStatuses))
	for _, from := range AllStatuses {
		if CanTransition(from, to, cause) {
			out = append(out, from)
		}
	}
	return out
}

// IsSticky reports whether from resists writes from cause.
func IsSticky(from Status, cause Cause) bool {
	if cause == CauseManual {
		return false
	}
	return !transitions[cause][from]
}

// CountsAsCalled reports whether a lead in this status has been dialled at least once.
func CountsAsCalled(s Status) bool {
	switch s {
	case StatusCalling, StatusContacted, StatusVoicemail, StatusBooked:
		return true
	default:
		return false
	}
}
