// Package repository defines error types that are reused across the
// availability and booking repositories. These sentinel values allow
// higher layers such as the allocation service and handlers to
// distinguish between different failure scenarios with errors.Is
// instead of inspecting driver-specific errors.
package repository

import "errors"

// ErrAvailabilityNotFound is returned when no availability set exists
// for the requested experience. Handlers should translate this into an
// HTTP 404 response.
var ErrAvailabilityNotFound = errors.New("availability set not found")

// ErrSlotNotFound is returned when a slot lookup fails, either because
// the slot never existed or because the schedule was replaced since the
// client last saw it. Handlers should translate this into an HTTP 404
// response.
var ErrSlotNotFound = errors.New("slot not found")

// ErrBookingNotFound is returned when a cancellation cannot locate the
// booking, including the case where a concurrent cancellation removed
// it first. Handlers should translate this into an HTTP 404 response.
var ErrBookingNotFound = errors.New("booking not found")

// ErrDuplicateBooking is returned when a user already holds a booking
// on the slot. At most one booking may exist per (slot, user) pair.
// Handlers should translate this into an HTTP 409 response.
var ErrDuplicateBooking = errors.New("duplicate booking")

// ErrSlotFull is returned when a booking loses the race for the slot's
// last unit of capacity. Handlers should translate this into an HTTP
// 409 response.
var ErrSlotFull = errors.New("slot full")

// ErrCapacityExceeded is returned when a capacity adjustment would
// leave remaining capacity outside [0, original capacity]. It signals
// a broken atomicity guarantee rather than ordinary contention and is
// surfaced as an internal error, never as a user-facing booking
// failure.
var ErrCapacityExceeded = errors.New("capacity exceeded")
