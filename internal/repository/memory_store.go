package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/comer/experience-booking/internal/model"
)

// MemoryStore is an in-memory availability store and booking ledger.
// It backs the test suite and the dev fallback when no database is
// configured.  A single mutex spans every check-and-update sequence,
// which gives the same guarantee the SQL conditional update gives:
// a read-check-then-write on a slot's capacity is never interleaved
// with another one.
type MemoryStore struct {
	mu         sync.RWMutex
	sets       map[string]*memorySet      // experience id -> set
	bookings   map[uint64]*model.Booking  // booking id -> booking
	bySlotUser map[string]uint64          // slot id + "\x00" + user id -> booking id
	nextID     uint64
}

// memorySet holds one experience's slots in generation order.
type memorySet struct {
	title     string
	createdAt time.Time
	order     []string
	slots     map[string]*model.Slot
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sets:       make(map[string]*memorySet),
		bookings:   make(map[uint64]*model.Booking),
		bySlotUser: make(map[string]uint64),
	}
}

func slotUserKey(slotID, userID string) string { return slotID + "\x00" + userID }

// Replace discards any existing availability set for the experience
// and installs the new one, dropping outstanding bookings with the old
// slots exactly as the SQL cascade does.
func (m *MemoryStore) Replace(ctx context.Context, set *model.AvailabilitySet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropSetLocked(set.ExperienceID)
	ms := &memorySet{
		title:     set.ExperienceTitle,
		createdAt: time.Now().UTC(),
		order:     make([]string, 0, len(set.Slots)),
		slots:     make(map[string]*model.Slot, len(set.Slots)),
	}
	for i := range set.Slots {
		s := set.Slots[i] // copy; callers keep their slice
		ms.order = append(ms.order, s.ID)
		ms.slots[s.ID] = &s
	}
	m.sets[set.ExperienceID] = ms
	return nil
}

// dropSetLocked removes a set and every booking made against its
// slots.  Callers must hold the write lock.
func (m *MemoryStore) dropSetLocked(experienceID string) {
	ms, ok := m.sets[experienceID]
	if !ok {
		return
	}
	for id, b := range m.bookings {
		if _, owned := ms.slots[b.SlotID]; owned {
			delete(m.bookings, id)
			delete(m.bySlotUser, slotUserKey(b.SlotID, b.UserID))
		}
	}
	delete(m.sets, experienceID)
}

// FindByExperience returns a copy of the experience's availability set
// with slots in generation order, or ErrAvailabilityNotFound.
func (m *MemoryStore) FindByExperience(ctx context.Context, experienceID string) (*model.AvailabilitySet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ms, ok := m.sets[experienceID]
	if !ok {
		return nil, ErrAvailabilityNotFound
	}
	set := &model.AvailabilitySet{
		ExperienceID:    experienceID,
		ExperienceTitle: ms.title,
		CreatedAt:       ms.createdAt,
		Slots:           make([]model.Slot, 0, len(ms.order)),
	}
	for _, id := range ms.order {
		set.Slots = append(set.Slots, *ms.slots[id])
	}
	return set, nil
}

// FindSlot returns a copy of one slot, or ErrSlotNotFound.
func (m *MemoryStore) FindSlot(ctx context.Context, experienceID, slotID string) (*model.Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, err := m.findSlotLocked(experienceID, slotID)
	if err != nil {
		return nil, err
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) findSlotLocked(experienceID, slotID string) (*model.Slot, error) {
	ms, ok := m.sets[experienceID]
	if !ok {
		return nil, ErrSlotNotFound
	}
	s, ok := ms.slots[slotID]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return s, nil
}

// Delete removes an experience's availability set together with its
// bookings, or returns ErrAvailabilityNotFound.
func (m *MemoryStore) Delete(ctx context.Context, experienceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sets[experienceID]; !ok {
		return ErrAvailabilityNotFound
	}
	m.dropSetLocked(experienceID)
	return nil
}

// Book reserves one unit of capacity for the user.  The uniqueness
// check, the capacity check and the decrement all happen under one
// lock acquisition, so two bookers racing for the last unit resolve to
// exactly one booking and one ErrSlotFull.
func (m *MemoryStore) Book(ctx context.Context, experienceID, slotID, userID, userEmail string) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.findSlotLocked(experienceID, slotID)
	if err != nil {
		return nil, err
	}
	if _, dup := m.bySlotUser[slotUserKey(slotID, userID)]; dup {
		return nil, ErrDuplicateBooking
	}
	if s.RemainingCapacity == 0 {
		return nil, ErrSlotFull
	}
	s.RemainingCapacity--
	m.nextID++
	b := &model.Booking{
		ID:              m.nextID,
		SlotID:          slotID,
		ExperienceID:    experienceID,
		ExperienceTitle: m.sets[experienceID].title,
		UserID:          userID,
		UserEmail:       userEmail,
		Date:            s.Date,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		CreatedAt:       time.Now().UTC(),
	}
	m.bookings[b.ID] = b
	m.bySlotUser[slotUserKey(slotID, userID)] = b.ID
	cp := *b
	return &cp, nil
}

// CancelByUser removes the booking the user holds on a slot and
// returns its unit of capacity, or ErrBookingNotFound.
func (m *MemoryStore) CancelByUser(ctx context.Context, experienceID, slotID, userID string) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.bySlotUser[slotUserKey(slotID, userID)]
	if !ok {
		return nil, ErrBookingNotFound
	}
	b := m.bookings[id]
	if b.ExperienceID != experienceID {
		return nil, ErrBookingNotFound
	}
	return m.removeBookingLocked(b)
}

// CancelByID removes a booking located by its identifier, or returns
// ErrBookingNotFound.
func (m *MemoryStore) CancelByID(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return m.removeBookingLocked(b)
}

// removeBookingLocked deletes the ledger entry and increments the
// slot's remaining capacity.  An increment past original capacity
// means the ledger and the slot disagree; that surfaces as
// ErrCapacityExceeded with the booking left untouched.
func (m *MemoryStore) removeBookingLocked(b *model.Booking) (*model.Booking, error) {
	if s, err := m.findSlotLocked(b.ExperienceID, b.SlotID); err == nil {
		if s.RemainingCapacity >= s.OriginalCapacity {
			return nil, ErrCapacityExceeded
		}
		s.RemainingCapacity++
	}
	delete(m.bookings, b.ID)
	delete(m.bySlotUser, slotUserKey(b.SlotID, b.UserID))
	cp := *b
	return &cp, nil
}

// ListByUser returns copies of the user's bookings, newest first.
func (m *MemoryStore) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Booking, 0)
	for _, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// BookingsForSlot reports how many ledger entries exist for a slot.
// It exists for invariant checks in tests.
func (m *MemoryStore) BookingsForSlot(slotID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, b := range m.bookings {
		if b.SlotID == slotID {
			n++
		}
	}
	return n
}
