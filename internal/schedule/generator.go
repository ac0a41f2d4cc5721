package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/comer/experience-booking/internal/model"
)

// dateLayout is the calendar-day format used across the API and the
// persisted slot rows.  Time of day on slot dates is always ignored.
const dateLayout = "2006-01-02"

// ParseDate parses a calendar day in "YYYY-MM-DD" form.  It returns
// ErrInvalidSchedule when the value does not parse, since a malformed
// date can only come from an invalid schedule definition.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidSchedule
	}
	return t, nil
}

// Generate expands an inclusive [startDate, endDate] range and a
// validated template into one slot per calendar day.  Every slot is a
// copy of the template plus that day's date, a fresh identifier and
// RemainingCapacity equal to the template's MaxGuest.  The function is
// deterministic and side-effect free: calling it twice with identical
// inputs yields two sequences equal in all fields except identity.
// Persisting the result is the caller's responsibility.
//
// It returns ErrInvalidSchedule when the date range is inverted, when
// the template's duration is zero or negative (schedules never wrap
// past midnight), when MaxGuest is zero or when the price is negative.
// Malformed clock strings surface as ErrInvalidTimeFormat.
func Generate(experienceID string, startDate, endDate time.Time, tmpl model.ScheduleTemplate) ([]model.Slot, error) {
	if startDate.After(endDate) {
		return nil, ErrInvalidSchedule
	}
	d, err := Duration(tmpl.StartTime, tmpl.EndTime)
	if err != nil {
		return nil, err
	}
	if d <= 0 {
		return nil, ErrInvalidSchedule
	}
	if tmpl.MaxGuest == 0 || tmpl.Price.IsNegative() {
		return nil, ErrInvalidSchedule
	}
	days := int(endDate.Sub(startDate).Hours()/24) + 1
	slots := make([]model.Slot, 0, days)
	for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
		slots = append(slots, model.Slot{
			ID:                uuid.NewString(),
			ExperienceID:      experienceID,
			Date:              day.Format(dateLayout),
			StartTime:         tmpl.StartTime,
			EndTime:           tmpl.EndTime,
			Price:             tmpl.Price,
			Currency:          tmpl.Currency,
			OriginalCapacity:  tmpl.MaxGuest,
			RemainingCapacity: tmpl.MaxGuest,
		})
	}
	return slots, nil
}
