package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seat-inventory/internal/handler"
    "github.com/iliyamo/seat-inventory/internal/middleware"
    "github.com/iliyamo/seat-inventory/internal/service"
)

// RegisterCustomer registers the hold and booking endpoints under /v1.  All
// routes require a valid JWT.  Taking seats is limited to customers and
// admins and runs through the rate limiter; the booking status routes are
// open to any authenticated caller and authorized per booking by the
// service.
func RegisterCustomer(e *echo.Echo, r *handler.ReservationHandler, b *handler.BookingHandler, jwtSecret string, rateLimit echo.MiddlewareFunc) {
    buyers := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(service.RoleCustomer, service.RoleAdmin),
    )
    if rateLimit != nil {
        buyers.Use(rateLimit)
    }
    buyers.POST("/schedules/:schedule_id/reservations", r.Reserve)
    buyers.DELETE("/reservations/:session_id", r.Release)
    buyers.POST("/schedules/:schedule_id/bookings", b.Commit)

    // Ownership is checked in the service: owner, show creator or admin.
    auth := e.Group("/v1/bookings", middleware.JWTAuth(jwtSecret))
    auth.GET("/:booking_id", b.Get)
    auth.POST("/:booking_id/cancel", b.Cancel)
    auth.POST("/:booking_id/confirm", b.Confirm)
}
