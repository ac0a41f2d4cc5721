package handler // handler defines the HTTP handlers for the allocation API

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/comer/experience-booking/internal/repository"
	"github.com/comer/experience-booking/internal/schedule"
)

// getUserID extracts the user identifier placed in the context by the
// JWT middleware.  Identity is issued by the external auth service;
// here it is only ever read.
func getUserID(c echo.Context) (string, error) {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("missing user_id in context")
}

// getUserEmail extracts the email claim stored by the JWT middleware.
// The email is snapshotted onto bookings for confirmation messages.
func getUserEmail(c echo.Context) string {
	if s, ok := c.Get("email").(string); ok {
		return s
	}
	return ""
}

// allocationError translates the allocation error taxonomy into an
// HTTP response.  Validation failures are 400, missing resources 404,
// contention outcomes 409.  Anything else, including a capacity
// invariant violation, is a 500: that one is already escalated in the
// service's logs and must not masquerade as a booking failure.
func allocationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, schedule.ErrInvalidTimeFormat):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid time format"})
	case errors.Is(err, schedule.ErrInvalidSchedule):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid schedule"})
	case errors.Is(err, repository.ErrAvailabilityNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "availability not found"})
	case errors.Is(err, repository.ErrSlotNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrDuplicateBooking):
		return c.JSON(http.StatusConflict, echo.Map{"error": "you have already booked this slot"})
	case errors.Is(err, repository.ErrSlotFull):
		return c.JSON(http.StatusConflict, echo.Map{"error": "no remaining capacity for this slot"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
