package model

import "time"

// Booking records a single user's reservation of one unit of capacity
// on one slot.  The experience title and the slot's date and times are
// copied in at booking time so that a later title edit or schedule
// change does not retroactively alter a guest's confirmed reservation.
// At most one booking exists per (SlotID, UserID) pair at any time.
//
// Fields:
//  ID              – synthetic identifier assigned by the ledger.
//  SlotID          – slot the capacity unit was taken from.
//  ExperienceID    – experience the slot belongs to.
//  ExperienceTitle – title snapshot taken when the booking was made.
//  UserID          – user who made the booking.
//  UserEmail       – email snapshot for confirmation messages.
//  Date            – slot date copied at booking time ("YYYY-MM-DD").
//  StartTime       – slot start clock string copied at booking time.
//  EndTime         – slot end clock string copied at booking time.
//  CreatedAt       – when the booking was made.
type Booking struct {
	ID              uint64    `json:"id"`
	SlotID          string    `json:"slot_id"`
	ExperienceID    string    `json:"experience_id"`
	ExperienceTitle string    `json:"experience_title"`
	UserID          string    `json:"user_id"`
	UserEmail       string    `json:"user_email"`
	Date            string    `json:"date"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	CreatedAt       time.Time `json:"created_at"`
}
