package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/iliyamo/seat-inventory/internal/handler"
)

// Handlers bundles everything the route table needs.  The middlewares are
// built by main so tests can pass pass-through functions.
type Handlers struct {
    Inventory    *handler.InventoryHandler
    Reservations *handler.ReservationHandler
    Bookings     *handler.BookingHandler
    Sync         *handler.SyncHandler
    Ready        echo.HandlerFunc

    JWTSecret string
    // LayoutCache wraps the static venue layout read.  Nil disables it.
    LayoutCache echo.MiddlewareFunc
    // RateLimit guards the write endpoints that take seats.  Nil disables it.
    RateLimit echo.MiddlewareFunc
}

// RegisterRoutes registers the health checks and every API group on e.
func RegisterRoutes(e *echo.Echo, h Handlers) {
    // Liveness for load balancers; readiness also pings the database.
    e.GET("/healthz", handler.Health)
    if h.Ready != nil {
        e.GET("/readyz", h.Ready)
    }
    RegisterPublic(e, h.Inventory, h.LayoutCache)
    RegisterCustomer(e, h.Reservations, h.Bookings, h.JWTSecret, h.RateLimit)
    RegisterAdmin(e, h.Inventory, h.Reservations, h.Bookings, h.Sync, h.JWTSecret)
}

// RegisterPublic registers the unauthenticated seat views.  Only the venue
// layout is cached: availability changes with every hold.
func RegisterPublic(e *echo.Echo, inv *handler.InventoryHandler, layoutCache echo.MiddlewareFunc) {
    var layoutMW []echo.MiddlewareFunc
    if layoutCache != nil {
        layoutMW = append(layoutMW, layoutCache)
    }
    e.GET("/v1/venues/:venue_id/seats", inv.VenueLayout, layoutMW...)
    e.GET("/v1/venues/:venue_id/schedules/:schedule_id/seats", inv.SeatMap)
    e.GET("/v1/schedules/:schedule_id/seats/:seat_id", inv.SeatAvailability)
}
