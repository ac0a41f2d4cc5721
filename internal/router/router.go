package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/comer/experience-booking/internal/config"
	"github.com/comer/experience-booking/internal/handler"
	"github.com/comer/experience-booking/internal/middleware"
)

// RegisterPublic registers the unauthenticated routes: the health check
// and the availability listing guests browse before booking.  The
// availability read sits behind the Redis response cache when one is
// configured.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	e.GET("/v1/experiences/:id/availability", p.GetAvailability, cache)
}

// RegisterSchedule registers the host-only schedule management routes.
// Defining a schedule replaces any previous one for the experience, so
// both operations are restricted to the HOST role.
func RegisterSchedule(e *echo.Echo, s *handler.ScheduleHandler, jwtSecret string) {
	g := e.Group("/v1/experiences")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("HOST"))

	g.POST("/:id/schedule", s.DefineSchedule)
	g.DELETE("/:id/schedule", s.DeleteSchedule)
}

// RegisterBooking registers the guest booking routes.  Any authenticated
// role may book; the rate limiter guards the write endpoints against
// retry storms from a single client.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, jwtSecret string, rdb *redis.Client) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("HOST", "GUEST"))
	g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	g.POST("/bookings", b.Book)
	g.POST("/bookings/cancel", b.CancelBySlot)
	g.DELETE("/bookings/:id", b.CancelByID)
	g.GET("/my-bookings", b.ListMine)
}
