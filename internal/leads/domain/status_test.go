package domain

import "testing"

func TestBookedIsStickyAgainstCallEnded(t *testing.T) {
	for _, to := range []Status{StatusPending, StatusVoicemail, StatusContacted} {
		if CanTransition(StatusBooked, to, CauseCallEnded) {
			t.Errorf("Booked -> %s allowed for call_ended", to)
		}
	}
	if !IsSticky(StatusBooked, CauseCallEnded) {
		t.Error("expected Booked to be sticky for call_ended")
	}
}

func TestBookingAlwaysWins(t *testing.T) {
	for _, from := range AllStatuses {
		if !CanTransition(from, StatusBooked, CauseBooking) {
			t.Errorf("%s -> Booked rejected for booking", from)
		}
	}
}

func TestCallEndedClassificationTargets(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusCalling, StatusVoicemail, true},
		{StatusCalling, StatusPending, true},
		{StatusPending, StatusVoicemail, true},
		{StatusCalling, StatusBooked, false},
		{StatusCalling, StatusFailed, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to, CauseCallEnded); got != tc.want {
			t.Errorf("CanTransition(%s, %s, call_ended) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCompensationOnlyUndoesCalling(t *testing.T) {
	got := AllowedSources(StatusFailed, CauseCallFailed)
	if len(got) != 1 || got[0] != StatusCalling {
		t.Fatalf("AllowedSources(Failed, call_failed) = %v, want [Calling]", got)
	}
}

func TestUploadNeverRegressesBooked(t *testing.T) {
	for _, s := range AllowedSources(StatusPending, CauseUpload) {
		if s == StatusBooked {
			t.Fatal("upload may overwrite Booked")
		}
	}
}

func TestManualAcceptsAnyKnownStatus(t *testing.T) {
	if !CanTransition(StatusBooked, StatusPending, CauseManual) {
		t.Error("manual Booked -> Pending rejected")
	}
	if CanTransition(StatusBooked, Status("Lost"), CauseManual) {
		t.Error("manual write to unknown status accepted")
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("Booked"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseStatus("booked"); err == nil {
		t.Fatal("expected case-sensitive parse to reject lowercase")
	}
}
