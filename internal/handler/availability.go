package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/comer/experience-booking/internal/service"
)

// PublicHandler exposes unauthenticated browse endpoints so guests can
// inspect an experience's availability before signing in to book.
type PublicHandler struct {
	Alloc *service.AllocationService
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(alloc *service.AllocationService) *PublicHandler {
	if alloc == nil {
		panic("nil allocation service passed to NewPublicHandler")
	}
	return &PublicHandler{Alloc: alloc}
}

// GetAvailability handles GET /v1/experiences/:id/availability.  It
// returns the experience's slots with their remaining capacity, or 404
// when no schedule has been defined.
func (h *PublicHandler) GetAvailability(c echo.Context) error {
	experienceID := strings.TrimSpace(c.Param("id"))
	if experienceID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid experience id"})
	}
	set, err := h.Alloc.Availability(c.Request().Context(), experienceID)
	if err != nil {
		return allocationError(c, err)
	}
	return c.JSON(http.StatusOK, set)
}

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
