package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/comer/experience-booking/internal/model"
	"github.com/comer/experience-booking/internal/service"
)

// ScheduleHandler exposes the host-facing schedule operations: define
// (or redefine) an experience's availability and remove it entirely.
// JWT authentication and the HOST role are enforced by middleware.
type ScheduleHandler struct {
	Alloc *service.AllocationService
}

// NewScheduleHandler constructs a ScheduleHandler.  The allocation
// service must be non-nil.
func NewScheduleHandler(alloc *service.AllocationService) *ScheduleHandler {
	if alloc == nil {
		panic("nil allocation service passed to NewScheduleHandler")
	}
	return &ScheduleHandler{Alloc: alloc}
}

// DefineSchedule handles POST /v1/experiences/:id/schedule.  The body
// carries the experience title snapshot, the date range and the slot
// template.  Redefining a schedule replaces the whole availability set
// and discards outstanding bookings on the old slots.  Responds 201
// with the generated set on success and 400 when the schedule does not
// validate.
func (h *ScheduleHandler) DefineSchedule(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	experienceID := strings.TrimSpace(c.Param("id"))
	if experienceID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid experience id"})
	}
	var body struct {
		Title     string          `json:"title"`
		StartDate string          `json:"start_date"`
		EndDate   string          `json:"end_date"`
		StartTime string          `json:"start_time"`
		EndTime   string          `json:"end_time"`
		MaxGuest  uint32          `json:"max_guest"`
		Price     decimal.Decimal `json:"price"`
		Currency  string          `json:"currency"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	set, err := h.Alloc.DefineSchedule(c.Request().Context(), service.DefineScheduleInput{
		ExperienceID:    experienceID,
		ExperienceTitle: strings.TrimSpace(body.Title),
		StartDate:       strings.TrimSpace(body.StartDate),
		EndDate:         strings.TrimSpace(body.EndDate),
		Template: model.ScheduleTemplate{
			StartTime: strings.TrimSpace(body.StartTime),
			EndTime:   strings.TrimSpace(body.EndTime),
			MaxGuest:  body.MaxGuest,
			Price:     body.Price,
			Currency:  strings.ToUpper(strings.TrimSpace(body.Currency)),
		},
	})
	if err != nil {
		return allocationError(c, err)
	}
	return c.JSON(http.StatusCreated, set)
}

// DeleteSchedule handles DELETE /v1/experiences/:id/schedule.  It
// removes the availability set when the experience is deleted by its
// owner, cascading to slots and bookings.  Responds 204 on success.
func (h *ScheduleHandler) DeleteSchedule(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	experienceID := strings.TrimSpace(c.Param("id"))
	if experienceID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid experience id"})
	}
	if err := h.Alloc.RemoveSchedule(c.Request().Context(), experienceID); err != nil {
		return allocationError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
