package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seat-inventory/internal/service"
)

// InventoryHandler serves the seat views and the seat price admin edit.
type InventoryHandler struct {
    Inventory *service.Inventory
    // LayoutChanged runs after an edit that changes a cached venue layout.
    LayoutChanged func(ctx context.Context)
}

// NewInventoryHandler panics on a nil service.
func NewInventoryHandler(inv *service.Inventory, layoutChanged func(ctx context.Context)) *InventoryHandler {
    if inv == nil {
        panic("nil inventory passed to NewInventoryHandler")
    }
    return &InventoryHandler{Inventory: inv, LayoutChanged: layoutChanged}
}

// VenueLayout handles GET /v1/venues/:venue_id/seats.
func (h *InventoryHandler) VenueLayout(c echo.Context) error {
    venueID, err := pathID(c, "venue_id")
    if err != nil {
        return err
    }
    layout, err := h.Inventory.VenueLayout(c.Request().Context(), venueID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, layout)
}

// SeatMap handles GET /v1/venues/:venue_id/schedules/:schedule_id/seats.
// With ?view=available only the free seats are listed.
func (h *InventoryHandler) SeatMap(c echo.Context) error {
    venueID, err := pathID(c, "venue_id")
    if err != nil {
        return err
    }
    scheduleID, err := pathID(c, "schedule_id")
    if err != nil {
        return err
    }
    ctx := c.Request().Context()
    if c.QueryParam("view") == "available" {
        seats, err := h.Inventory.AvailableSeats(ctx, venueID, scheduleID)
        if err != nil {
            return writeError(c, err)
        }
        return c.JSON(http.StatusOK, echo.Map{
            "venue_id":    venueID,
            "schedule_id": scheduleID,
            "count":       len(seats),
            "seats":       seats,
        })
    }
    m, err := h.Inventory.SeatMap(ctx, venueID, scheduleID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, m)
}

// SeatAvailability handles GET /v1/schedules/:schedule_id/seats/:seat_id.
func (h *InventoryHandler) SeatAvailability(c echo.Context) error {
    scheduleID, err := pathID(c, "schedule_id")
    if err != nil {
        return err
    }
    seatID, err := pathID(c, "seat_id")
    if err != nil {
        return err
    }
    free, err := h.Inventory.IsAvailable(c.Request().Context(), seatID, scheduleID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"schedule_id": scheduleID, "seat_id": seatID, "available": free})
}

type priceMultiplierRequest struct {
    PriceMultiplier float64 `json:"price_multiplier" validate:"required,gt=0,lte=10"`
}

// SetPriceMultiplier handles PATCH /v1/admin/seats/:seat_id.
func (h *InventoryHandler) SetPriceMultiplier(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return err
    }
    seatID, err := pathID(c, "seat_id")
    if err != nil {
        return err
    }
    var body priceMultiplierRequest
    if err := bind(c, &body); err != nil {
        return err
    }
    ctx := c.Request().Context()
    if err := h.Inventory.SetPriceMultiplier(ctx, a, seatID, body.PriceMultiplier); err != nil {
        return writeError(c, err)
    }
    if h.LayoutChanged != nil {
        h.LayoutChanged(ctx)
    }
    return c.JSON(http.StatusOK, echo.Map{"seat_id": seatID, "price_multiplier": body.PriceMultiplier})
}
