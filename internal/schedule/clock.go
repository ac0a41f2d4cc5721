// Package schedule implements the pure pieces of the allocation engine:
// parsing 12-hour clock strings, computing schedule durations and
// expanding a date range into per-day slots.  Nothing in this package
// touches storage; callers persist the generated slots themselves.
package schedule

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidTimeFormat is returned when a clock string cannot be split
// into hour, minute and meridiem parts or when the parts are out of
// range.  Handlers should translate this into an HTTP 400 response.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// ErrInvalidSchedule is returned when a schedule spans no time (zero or
// negative duration) or when its date range is inverted.  Handlers
// should translate this into an HTTP 400 response.
var ErrInvalidSchedule = errors.New("invalid schedule")

// ParseClock converts a 12-hour clock string of the form "H:MM AM" or
// "H:MM PM" into a minute-of-day value in [0, 1439].  The hour must be
// in [1, 12] and the minute must be two digits in [00, 59]; the
// meridiem marker is case-insensitive.  Hour 12 with AM maps to the
// first hour of the day (minutes 0–59), hour 12 with PM stays at noon,
// and any other PM hour is shifted forward twelve hours.
func ParseClock(s string) (int, error) {
	hourStr, rest, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, ErrInvalidTimeFormat
	}
	minuteStr, meridiem, ok := strings.Cut(strings.TrimSpace(rest), " ")
	if !ok {
		return 0, ErrInvalidTimeFormat
	}
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 1 || hour > 12 {
		return 0, ErrInvalidTimeFormat
	}
	if len(minuteStr) != 2 {
		return 0, ErrInvalidTimeFormat
	}
	minute, err := strconv.Atoi(minuteStr)
	if err != nil || minute < 0 || minute > 59 {
		return 0, ErrInvalidTimeFormat
	}
	switch strings.ToUpper(strings.TrimSpace(meridiem)) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	default:
		return 0, ErrInvalidTimeFormat
	}
	return hour*60 + minute, nil
}

// Duration returns parse(end) − parse(start) in minutes.  The result
// may be zero or negative when the times span nothing or are inverted;
// the generator treats such schedules as fatal validation errors and
// never wraps past midnight.
func Duration(start, end string) (int, error) {
	s, err := ParseClock(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0, err
	}
	return e - s, nil
}
