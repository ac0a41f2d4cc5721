package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comer/experience-booking/internal/model"
)

func tmpl() model.ScheduleTemplate {
	return model.ScheduleTemplate{
		StartTime: "9:00 AM",
		EndTime:   "11:00 AM",
		MaxGuest:  4,
		Price:     decimal.NewFromInt(25),
		Currency:  "USD",
	}
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestGenerateOneSlotPerDay(t *testing.T) {
	slots, err := Generate("exp-1", day("2024-01-01"), day("2024-01-03"), tmpl())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(slots))
	}
	wantDates := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	for i, s := range slots {
		if s.Date != wantDates[i] {
			t.Fatalf("slot %d has date %q, want %q", i, s.Date, wantDates[i])
		}
		if s.ExperienceID != "exp-1" {
			t.Fatalf("slot %d has experience %q, want exp-1", i, s.ExperienceID)
		}
		if s.ID == "" {
			t.Fatalf("slot %d has empty id", i)
		}
		if s.OriginalCapacity != 4 || s.RemainingCapacity != 4 {
			t.Fatalf("slot %d capacity = %d/%d, want 4/4", i, s.RemainingCapacity, s.OriginalCapacity)
		}
		if s.StartTime != "9:00 AM" || s.EndTime != "11:00 AM" {
			t.Fatalf("slot %d times = %q-%q", i, s.StartTime, s.EndTime)
		}
	}
}

func TestGenerateSingleDayRange(t *testing.T) {
	slots, err := Generate("exp-1", day("2024-06-15"), day("2024-06-15"), tmpl())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("got %d slots, want 1", len(slots))
	}
}

func TestGenerateDeterministicExceptIdentity(t *testing.T) {
	a, err := Generate("exp-1", day("2024-01-01"), day("2024-01-05"), tmpl())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	b, err := Generate("exp-1", day("2024-01-01"), day("2024-01-05"), tmpl())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID == b[i].ID {
			t.Fatalf("slot %d reused id %q across runs", i, a[i].ID)
		}
		a[i].ID, b[i].ID = "", ""
		if !a[i].Price.Equal(b[i].Price) {
			t.Fatalf("slot %d prices differ", i)
		}
		a[i].Price, b[i].Price = decimal.Decimal{}, decimal.Decimal{}
		if a[i] != b[i] {
			t.Fatalf("slot %d differs beyond identity: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGenerateRejectsInvalidSchedules(t *testing.T) {
	// Inverted date range.
	if _, err := Generate("exp-1", day("2024-01-03"), day("2024-01-01"), tmpl()); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("inverted range: got %v, want ErrInvalidSchedule", err)
	}

	// End before start never wraps past midnight.
	inverted := tmpl()
	inverted.StartTime, inverted.EndTime = "5:00 PM", "9:00 AM"
	if _, err := Generate("exp-1", day("2024-01-01"), day("2024-01-03"), inverted); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("inverted times: got %v, want ErrInvalidSchedule", err)
	}

	// Zero duration.
	zero := tmpl()
	zero.EndTime = zero.StartTime
	if _, err := Generate("exp-1", day("2024-01-01"), day("2024-01-03"), zero); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("zero duration: got %v, want ErrInvalidSchedule", err)
	}

	// Zero capacity.
	empty := tmpl()
	empty.MaxGuest = 0
	if _, err := Generate("exp-1", day("2024-01-01"), day("2024-01-03"), empty); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("zero capacity: got %v, want ErrInvalidSchedule", err)
	}

	// Negative price.
	neg := tmpl()
	neg.Price = decimal.NewFromInt(-1)
	if _, err := Generate("exp-1", day("2024-01-01"), day("2024-01-03"), neg); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("negative price: got %v, want ErrInvalidSchedule", err)
	}

	// Malformed clock string surfaces as a time format error.
	bad := tmpl()
	bad.StartTime = "nine o'clock"
	if _, err := Generate("exp-1", day("2024-01-01"), day("2024-01-03"), bad); !errors.Is(err, ErrInvalidTimeFormat) {
		t.Fatalf("bad clock: got %v, want ErrInvalidTimeFormat", err)
	}
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("2024-02-29"); err != nil {
		t.Fatalf("leap day rejected: %v", err)
	}
	for _, bad := range []string{"", "01-01-2024", "2024-13-01", "2024-02-30"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidSchedule) {
			t.Fatalf("ParseDate(%q) = %v, want ErrInvalidSchedule", bad, err)
		}
	}
}
