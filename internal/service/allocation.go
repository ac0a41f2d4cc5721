// Package service contains the allocation service that orchestrates
// schedule validation, slot generation, the availability store and the
// booking ledger behind the externally visible operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/comer/experience-booking/internal/model"
	"github.com/comer/experience-booking/internal/queue"
	"github.com/comer/experience-booking/internal/repository"
	"github.com/comer/experience-booking/internal/schedule"
)

// AvailabilityStore is the slot collection owned by one experience:
// lookup, atomic capacity adjustment (performed inside the ledger's
// transactions) and bulk replace.  Implemented by the MySQL repository
// and by the in-memory store.
type AvailabilityStore interface {
	Replace(ctx context.Context, set *model.AvailabilitySet) error
	FindByExperience(ctx context.Context, experienceID string) (*model.AvailabilitySet, error)
	FindSlot(ctx context.Context, experienceID, slotID string) (*model.Slot, error)
	Delete(ctx context.Context, experienceID string) error
}

// BookingLedger records and removes reservations while keeping slot
// capacity consistent with the ledger at every observable point.
type BookingLedger interface {
	Book(ctx context.Context, experienceID, slotID, userID, userEmail string) (*model.Booking, error)
	CancelByUser(ctx context.Context, experienceID, slotID, userID string) (*model.Booking, error)
	CancelByID(ctx context.Context, bookingID uint64) (*model.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]model.Booking, error)
}

// EventPublisher pushes booking lifecycle events to the broker.  A nil
// publisher disables events; publish failures never fail the booking.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error
}

// AllocationService is the only component allowed to call Replace on
// the availability store.  It validates schedules before generating
// slots, routes bookings and cancellations through the ledger and
// translates nothing: failures from the parser, generator, store and
// ledger propagate unchanged.
type AllocationService struct {
	store     AvailabilityStore
	ledger    BookingLedger
	publisher EventPublisher
	validate  *validator.Validate
	log       *logrus.Logger
}

// NewAllocationService wires the service.  Store, ledger and log must
// be non-nil; publisher may be nil when no broker is configured.
func NewAllocationService(store AvailabilityStore, ledger BookingLedger, publisher EventPublisher, log *logrus.Logger) *AllocationService {
	if store == nil || ledger == nil || log == nil {
		panic("nil dependency passed to NewAllocationService")
	}
	return &AllocationService{
		store:     store,
		ledger:    ledger,
		publisher: publisher,
		validate:  validator.New(),
		log:       log,
	}
}

// DefineScheduleInput carries everything consumed from the experience
// collaborator at schedule-definition time: the identifier, the title
// snapshot used by bookings, the date range and the per-day template.
type DefineScheduleInput struct {
	ExperienceID    string                 `json:"experience_id" validate:"required"`
	ExperienceTitle string                 `json:"experience_title" validate:"required"`
	StartDate       string                 `json:"start_date" validate:"required"`
	EndDate         string                 `json:"end_date" validate:"required"`
	Template        model.ScheduleTemplate `json:"template"`
}

// DefineSchedule validates the schedule, generates one slot per
// calendar day of the inclusive date range and atomically replaces the
// experience's availability set.  Replacing discards outstanding
// bookings on the old slots; see the store's Replace contract.  A
// partially generated set is never visible.
func (s *AllocationService) DefineSchedule(ctx context.Context, in DefineScheduleInput) (*model.AvailabilitySet, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", schedule.ErrInvalidSchedule, err)
	}
	start, err := schedule.ParseDate(in.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := schedule.ParseDate(in.EndDate)
	if err != nil {
		return nil, err
	}
	slots, err := schedule.Generate(in.ExperienceID, start, end, in.Template)
	if err != nil {
		return nil, err
	}
	set := &model.AvailabilitySet{
		ExperienceID:    in.ExperienceID,
		ExperienceTitle: in.ExperienceTitle,
		Slots:           slots,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.Replace(ctx, set); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"experience_id": in.ExperienceID,
		"slots":         len(slots),
		"start_date":    in.StartDate,
		"end_date":      in.EndDate,
	}).Info("schedule defined")
	return set, nil
}

// Availability returns the experience's current availability set.
func (s *AllocationService) Availability(ctx context.Context, experienceID string) (*model.AvailabilitySet, error) {
	return s.store.FindByExperience(ctx, experienceID)
}

// RemoveSchedule destroys the experience's availability set together
// with its slots and bookings.  Called when the experience itself is
// deleted by the owning collaborator.
func (s *AllocationService) RemoveSchedule(ctx context.Context, experienceID string) error {
	if err := s.store.Delete(ctx, experienceID); err != nil {
		return err
	}
	s.log.WithField("experience_id", experienceID).Info("schedule removed")
	return nil
}

// Book reserves one unit of capacity on a slot for the user.  On
// success a confirmation event is published; publish failures are
// logged and swallowed since the booking is already committed.
func (s *AllocationService) Book(ctx context.Context, experienceID, slotID, userID, userEmail string) (*model.Booking, error) {
	b, err := s.ledger.Book(ctx, experienceID, slotID, userID, userEmail)
	if err != nil {
		s.observe(err, experienceID, slotID, userID)
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"booking_id":    b.ID,
		"experience_id": experienceID,
		"slot_id":       slotID,
		"user_id":       userID,
	}).Info("booking confirmed")
	s.publish(ctx, queue.ActionConfirmed, b)
	return b, nil
}

// CancelByUser removes the user's booking on a slot and frees its unit
// of capacity.
func (s *AllocationService) CancelByUser(ctx context.Context, experienceID, slotID, userID string) error {
	b, err := s.ledger.CancelByUser(ctx, experienceID, slotID, userID)
	if err != nil {
		s.observe(err, experienceID, slotID, userID)
		return err
	}
	s.logCancelled(b)
	s.publish(ctx, queue.ActionCancelled, b)
	return nil
}

// CancelByBookingID removes a booking located by its identifier.  It
// is equivalent in effect to CancelByUser on the same booking: one
// ledger removal, one capacity increment.
func (s *AllocationService) CancelByBookingID(ctx context.Context, bookingID uint64) error {
	b, err := s.ledger.CancelByID(ctx, bookingID)
	if err != nil {
		s.observe(err, "", "", "")
		return err
	}
	s.logCancelled(b)
	s.publish(ctx, queue.ActionCancelled, b)
	return nil
}

// ListBookingsForUser returns the user's bookings, newest first.
func (s *AllocationService) ListBookingsForUser(ctx context.Context, userID string) ([]model.Booking, error) {
	return s.ledger.ListByUser(ctx, userID)
}

func (s *AllocationService) logCancelled(b *model.Booking) {
	s.log.WithFields(logrus.Fields{
		"booking_id":    b.ID,
		"experience_id": b.ExperienceID,
		"slot_id":       b.SlotID,
		"user_id":       b.UserID,
	}).Info("booking cancelled")
}

// observe escalates capacity invariant violations.  ErrCapacityExceeded
// means the atomicity guarantee broke somewhere, which is a bug and
// not contention, so it is logged at error level with full context.
func (s *AllocationService) observe(err error, experienceID, slotID, userID string) {
	if errors.Is(err, repository.ErrCapacityExceeded) {
		s.log.WithFields(logrus.Fields{
			"experience_id": experienceID,
			"slot_id":       slotID,
			"user_id":       userID,
		}).WithError(err).Error("capacity invariant violated")
	}
}

func (s *AllocationService) publish(ctx context.Context, action string, b *model.Booking) {
	if s.publisher == nil {
		return
	}
	ev := queue.BookingEvent{
		Action:          action,
		BookingID:       b.ID,
		ExperienceID:    b.ExperienceID,
		ExperienceTitle: b.ExperienceTitle,
		SlotID:          b.SlotID,
		UserID:          b.UserID,
		UserEmail:       b.UserEmail,
		Date:            b.Date,
		StartTime:       b.StartTime,
		EndTime:         b.EndTime,
		OccurredAt:      time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.PublishBookingEvent(ctx, ev); err != nil {
		s.log.WithError(err).Warn("failed to publish booking event")
	}
}
