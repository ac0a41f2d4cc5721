package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/comer/experience-booking/internal/service"
)

// BookingHandler exposes the guest-facing booking operations.  All
// methods assume JWT authentication has already run; the user identity
// and email come from token claims, never from the request body.
type BookingHandler struct {
	Alloc *service.AllocationService
}

// NewBookingHandler constructs a BookingHandler.  The allocation
// service must be non-nil.
func NewBookingHandler(alloc *service.AllocationService) *BookingHandler {
	if alloc == nil {
		panic("nil allocation service passed to NewBookingHandler")
	}
	return &BookingHandler{Alloc: alloc}
}

// Book handles POST /v1/bookings.  The body names the experience and
// slot; the booking is made for the authenticated user.  Responds 201
// with the booking on success, 404 when the slot is gone, and 409 for
// a duplicate booking or a full slot.
func (h *BookingHandler) Book(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		ExperienceID string `json:"experience_id"`
		SlotID       string `json:"slot_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	experienceID := strings.TrimSpace(body.ExperienceID)
	slotID := strings.TrimSpace(body.SlotID)
	if experienceID == "" || slotID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "experience_id and slot_id are required"})
	}
	b, err := h.Alloc.Book(c.Request().Context(), experienceID, slotID, userID, getUserEmail(c))
	if err != nil {
		return allocationError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// CancelBySlot handles POST /v1/bookings/cancel.  It cancels the
// authenticated user's booking on the given slot.  Cancellation is
// allowed even after the slot's date has passed.  Responds 200 on
// success and 404 when the user holds no booking on the slot.
func (h *BookingHandler) CancelBySlot(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		ExperienceID string `json:"experience_id"`
		SlotID       string `json:"slot_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	experienceID := strings.TrimSpace(body.ExperienceID)
	slotID := strings.TrimSpace(body.SlotID)
	if experienceID == "" || slotID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "experience_id and slot_id are required"})
	}
	if err := h.Alloc.CancelByUser(c.Request().Context(), experienceID, slotID, userID); err != nil {
		return allocationError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "booking cancelled"})
}

// CancelByID handles DELETE /v1/bookings/:id.  It cancels a booking by
// its identifier with exactly the same effect as CancelBySlot: one
// ledger removal and one capacity increment.  Responds 204 on success.
func (h *BookingHandler) CancelByID(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if err := h.Alloc.CancelByBookingID(c.Request().Context(), bookingID); err != nil {
		return allocationError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListMine handles GET /v1/my-bookings.  It returns the authenticated
// user's bookings, newest first; an empty array when there are none.
func (h *BookingHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Alloc.ListBookingsForUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
