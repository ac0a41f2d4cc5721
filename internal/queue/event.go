// Package queue defines message payloads exchanged over the message
// broker and the background consumer that drains them.
package queue

// BookingEventsQueue is the durable queue carrying booking lifecycle
// events.  Both confirmations and cancellations flow through it; the
// Action field tells them apart.
const BookingEventsQueue = "booking.events"

// Actions carried by BookingEvent.
const (
	ActionConfirmed = "confirmed"
	ActionCancelled = "cancelled"
)

// BookingEvent is published after a booking is confirmed or cancelled.
// It carries enough denormalized data for downstream consumers to log,
// notify or feed analytics without querying the primary database.
type BookingEvent struct {
	Action          string `json:"action"`
	BookingID       uint64 `json:"booking_id"`
	ExperienceID    string `json:"experience_id"`
	ExperienceTitle string `json:"experience_title"`
	SlotID          string `json:"slot_id"`
	UserID          string `json:"user_id"`
	UserEmail       string `json:"user_email"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	OccurredAt      string `json:"occurred_at"`
}
