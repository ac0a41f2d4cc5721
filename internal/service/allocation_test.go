package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/comer/experience-booking/internal/model"
	"github.com/comer/experience-booking/internal/queue"
	"github.com/comer/experience-booking/internal/repository"
	"github.com/comer/experience-booking/internal/schedule"
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
}

func (p *recordingPublisher) PublishBookingEvent(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Action
	}
	return out
}

func newTestService(t *testing.T) (*AllocationService, *repository.MemoryStore, *recordingPublisher) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	mem := repository.NewMemoryStore()
	pub := &recordingPublisher{}
	return NewAllocationService(mem, mem, pub, log), mem, pub
}

func defineInput() DefineScheduleInput {
	return DefineScheduleInput{
		ExperienceID:    "exp-1",
		ExperienceTitle: "Sunrise Hike",
		StartDate:       "2024-01-01",
		EndDate:         "2024-01-03",
		Template: model.ScheduleTemplate{
			StartTime: "6:00 AM",
			EndTime:   "9:00 AM",
			MaxGuest:  2,
			Price:     decimal.NewFromInt(30),
			Currency:  "USD",
		},
	}
}

func TestDefineScheduleGeneratesDailySlots(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	set, err := svc.DefineSchedule(ctx, defineInput())
	if err != nil {
		t.Fatalf("DefineSchedule failed: %v", err)
	}
	if len(set.Slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(set.Slots))
	}

	got, err := svc.Availability(ctx, "exp-1")
	if err != nil {
		t.Fatalf("Availability failed: %v", err)
	}
	if got.ExperienceTitle != "Sunrise Hike" || len(got.Slots) != 3 {
		t.Fatalf("stored set differs: %+v", got)
	}
	for _, s := range got.Slots {
		if s.RemainingCapacity != 2 {
			t.Fatalf("slot %s remaining = %d, want 2", s.ID, s.RemainingCapacity)
		}
	}
}

func TestDefineScheduleValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	in := defineInput()
	in.Template.Currency = "dollars"
	if _, err := svc.DefineSchedule(ctx, in); !errors.Is(err, schedule.ErrInvalidSchedule) {
		t.Fatalf("bad currency: got %v, want ErrInvalidSchedule", err)
	}

	in = defineInput()
	in.StartDate = "not-a-date"
	if _, err := svc.DefineSchedule(ctx, in); !errors.Is(err, schedule.ErrInvalidSchedule) {
		t.Fatalf("bad date: got %v, want ErrInvalidSchedule", err)
	}

	in = defineInput()
	in.Template.StartTime = "25:00 AM"
	if _, err := svc.DefineSchedule(ctx, in); !errors.Is(err, schedule.ErrInvalidTimeFormat) {
		t.Fatalf("bad time: got %v, want ErrInvalidTimeFormat", err)
	}
}

func TestBookingLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestService(t)

	set, err := svc.DefineSchedule(ctx, defineInput())
	if err != nil {
		t.Fatalf("DefineSchedule failed: %v", err)
	}
	slotID := set.Slots[0].ID

	b1, err := svc.Book(ctx, "exp-1", slotID, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("first Book failed: %v", err)
	}
	if _, err := svc.Book(ctx, "exp-1", slotID, "bob", "bob@example.com"); err != nil {
		t.Fatalf("second Book failed: %v", err)
	}

	// Slot is full now; a third guest is turned away.
	if _, err := svc.Book(ctx, "exp-1", slotID, "carol", ""); !errors.Is(err, repository.ErrSlotFull) {
		t.Fatalf("third Book = %v, want ErrSlotFull", err)
	}
	// Booking the same slot twice is rejected regardless of capacity.
	if _, err := svc.Book(ctx, "exp-1", slotID, "alice", ""); !errors.Is(err, repository.ErrDuplicateBooking) {
		t.Fatalf("repeat Book = %v, want ErrDuplicateBooking", err)
	}

	if err := svc.CancelByUser(ctx, "exp-1", slotID, "bob"); err != nil {
		t.Fatalf("CancelByUser failed: %v", err)
	}
	if err := svc.CancelByBookingID(ctx, b1.ID); err != nil {
		t.Fatalf("CancelByBookingID failed: %v", err)
	}

	avail, err := svc.Availability(ctx, "exp-1")
	if err != nil {
		t.Fatalf("Availability failed: %v", err)
	}
	for _, s := range avail.Slots {
		if s.ID == slotID && s.RemainingCapacity != 2 {
			t.Fatalf("remaining = %d after both cancels, want 2", s.RemainingCapacity)
		}
	}

	want := []string{queue.ActionConfirmed, queue.ActionConfirmed, queue.ActionCancelled, queue.ActionCancelled}
	got := pub.actions()
	if len(got) != len(want) {
		t.Fatalf("published %d events, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBookUnknownSlot(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	if _, err := svc.DefineSchedule(ctx, defineInput()); err != nil {
		t.Fatalf("DefineSchedule failed: %v", err)
	}
	if _, err := svc.Book(ctx, "exp-1", "no-such-slot", "alice", ""); !errors.Is(err, repository.ErrSlotNotFound) {
		t.Fatalf("Book = %v, want ErrSlotNotFound", err)
	}
	if _, err := svc.Book(ctx, "no-such-exp", "whatever", "alice", ""); !errors.Is(err, repository.ErrSlotNotFound) {
		t.Fatalf("Book = %v, want ErrSlotNotFound", err)
	}
}

func TestRedefineReplacesSchedule(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	first, err := svc.DefineSchedule(ctx, defineInput())
	if err != nil {
		t.Fatalf("DefineSchedule failed: %v", err)
	}
	if _, err := svc.Book(ctx, "exp-1", first.Slots[0].ID, "alice", ""); err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	in := defineInput()
	in.StartDate, in.EndDate = "2024-02-01", "2024-02-05"
	second, err := svc.DefineSchedule(ctx, in)
	if err != nil {
		t.Fatalf("redefine failed: %v", err)
	}
	if len(second.Slots) != 5 {
		t.Fatalf("got %d slots, want 5", len(second.Slots))
	}

	// The old slots and their bookings are gone with the old set.
	list, err := svc.ListBookingsForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ListBookingsForUser failed: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("bookings survived redefine: %+v", list)
	}
	if _, err := svc.Book(ctx, "exp-1", first.Slots[0].ID, "bob", ""); !errors.Is(err, repository.ErrSlotNotFound) {
		t.Fatalf("Book on replaced slot = %v, want ErrSlotNotFound", err)
	}
}

func TestRemoveSchedule(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	if _, err := svc.DefineSchedule(ctx, defineInput()); err != nil {
		t.Fatalf("DefineSchedule failed: %v", err)
	}
	if err := svc.RemoveSchedule(ctx, "exp-1"); err != nil {
		t.Fatalf("RemoveSchedule failed: %v", err)
	}
	if _, err := svc.Availability(ctx, "exp-1"); !errors.Is(err, repository.ErrAvailabilityNotFound) {
		t.Fatalf("Availability = %v, want ErrAvailabilityNotFound", err)
	}
	if err := svc.RemoveSchedule(ctx, "exp-1"); !errors.Is(err, repository.ErrAvailabilityNotFound) {
		t.Fatalf("second RemoveSchedule = %v, want ErrAvailabilityNotFound", err)
	}
}
