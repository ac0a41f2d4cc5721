package schedule

import (
	"errors"
	"testing"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"12:00 AM", 0},
		{"12:30 AM", 30},
		{"1:00 AM", 60},
		{"9:00 AM", 540},
		{"11:59 AM", 719},
		{"12:00 PM", 720},
		{"12:45 PM", 765},
		{"1:00 PM", 780},
		{"5:30 PM", 1050},
		{"11:59 PM", 1439},
		{"9:00 am", 540},
		{"9:00 pm", 1260},
		{" 9:00 AM ", 540},
	}
	for _, c := range cases {
		got, err := ParseClock(c.in)
		if err != nil {
			t.Fatalf("ParseClock(%q) returned error: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseClock(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseClockRejectsMalformedInput(t *testing.T) {
	bad := []string{
		"",
		"9:00",      // no meridiem
		"900 AM",    // no colon
		"0:30 AM",   // hour below range
		"13:00 PM",  // hour above range
		"9:5 AM",    // one-digit minute
		"9:60 AM",   // minute out of range
		"9:00 XM",   // unknown meridiem
		"nine:00 AM",
	}
	for _, in := range bad {
		if _, err := ParseClock(in); !errors.Is(err, ErrInvalidTimeFormat) {
			t.Fatalf("ParseClock(%q) = %v, want ErrInvalidTimeFormat", in, err)
		}
	}
}

func TestDuration(t *testing.T) {
	d, err := Duration("9:00 AM", "5:00 PM")
	if err != nil {
		t.Fatalf("Duration returned error: %v", err)
	}
	if d != 480 {
		t.Fatalf("Duration = %d, want 480", d)
	}

	// Inverted times yield a negative result, not an error; the
	// generator decides what to do with it.
	d, err = Duration("5:00 PM", "9:00 AM")
	if err != nil {
		t.Fatalf("Duration returned error: %v", err)
	}
	if d != -480 {
		t.Fatalf("Duration = %d, want -480", d)
	}
}
