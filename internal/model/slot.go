package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleTemplate carries the fixed per-day values applied to every
// slot generated for an experience's date range.  It is a value object:
// once validated it is copied into each generated slot and never
// mutated.  StartTime and EndTime are 12-hour clock strings such as
// "9:00 AM"; the schedule package normalizes them to minutes of day.
//
// Fields:
//  StartTime – clock string marking when each day's slot begins.
//  EndTime   – clock string marking when each day's slot ends.
//  MaxGuest  – guest capacity per slot; must be positive.
//  Price     – price per guest; must not be negative.
//  Currency  – ISO-like currency code, e.g. "USD".
type ScheduleTemplate struct {
	StartTime string          `json:"start_time" validate:"required"`
	EndTime   string          `json:"end_time" validate:"required"`
	MaxGuest  uint32          `json:"max_guest" validate:"required,gt=0"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency" validate:"required,len=3,alpha"`
}

// Slot is one bookable day-instance of an experience's schedule.  Each
// slot owns its remaining guest capacity; the capacity is only ever
// changed through the availability store's atomic adjust operation.
//
// Fields:
//  ID                – synthetic identifier, unique within the owning set.
//  ExperienceID      – experience this slot belongs to.
//  Date              – calendar day in "YYYY-MM-DD" form (time of day ignored).
//  StartTime         – clock string copied from the template.
//  EndTime           – clock string copied from the template.
//  Price             – price per guest copied from the template.
//  Currency          – currency code copied from the template.
//  OriginalCapacity  – capacity the slot was generated with.
//  RemainingCapacity – units still available; 0 ≤ remaining ≤ original.
type Slot struct {
	ID                string          `json:"id"`
	ExperienceID      string          `json:"experience_id"`
	Date              string          `json:"date"`
	StartTime         string          `json:"start_time"`
	EndTime           string          `json:"end_time"`
	Price             decimal.Decimal `json:"price"`
	Currency          string          `json:"currency"`
	OriginalCapacity  uint32          `json:"original_capacity"`
	RemainingCapacity uint32          `json:"remaining_capacity"`
}

// AvailabilitySet aggregates every slot generated for one experience
// together with the title snapshot taken when the schedule was defined.
// Ownership is exclusive: no slot or booking is shared across
// experiences.  Replacing a schedule installs a whole new set.
type AvailabilitySet struct {
	ExperienceID    string    `json:"experience_id"`
	ExperienceTitle string    `json:"experience_title"`
	Slots           []Slot    `json:"slots"`
	CreatedAt       time.Time `json:"created_at"`
}
