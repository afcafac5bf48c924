package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seat-inventory/internal/handler"
    "github.com/iliyamo/seat-inventory/internal/middleware"
    "github.com/iliyamo/seat-inventory/internal/service"
)

// RegisterAdmin registers the operator endpoints under /v1/admin.  All
// routes require a JWT with the ADMIN role.
func RegisterAdmin(e *echo.Echo, inv *handler.InventoryHandler, r *handler.ReservationHandler, b *handler.BookingHandler, s *handler.SyncHandler, jwtSecret string) {
    g := e.Group(
        "/v1/admin",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(service.RoleAdmin),
    )
    g.PATCH("/seats/:seat_id", inv.SetPriceMultiplier)
    g.POST("/holds/sweep", r.Sweep)
    g.POST("/bookings/:booking_id/refund", b.Refund)

    // ---- Reconciliation ----
    g.POST("/sync/schedules/:schedule_id", s.Schedule)
    g.POST("/sync/venues/:venue_id", s.Venue)
    g.POST("/sync/all", s.All)
}
