package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Call Ended (hangup). Summary: booked for Tuesday", "Call Ended (hangup). Summary: booked for Tuesday"},
		{"<b>Jane</b> Doe", "Jane Doe"},
		{"&lt;script&gt;alert(1)&lt;/script&gt;wants a quote", "alert(1)wants a quote"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"budget > 5000", "budget > 5000"},
		{"price < $100 and > $50", "price < $100 and > $50"},
		{"&lt;3 the new offer", "<3 the new offer"},
		{"<!-- tracking -->callback <br/>after 5", "callback after 5"},
		{"  line one\nline two\x00  ", "line one\nline two"},
	}
	for _, tt := range tests {
		if got := Text(tt.in); got != tt.want {
			t.Errorf("Text(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextPtr(t *testing.T) {
	if TextPtr(nil) != nil {
		t.Fatal("nil in should stay nil")
	}
	in := " <i>hi</i> "
	if got := TextPtr(&in); *got != "hi" {
		t.Fatalf("TextPtr = %q", *got)
	}
}
