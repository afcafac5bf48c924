package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seat-inventory/internal/service"
)

// ReservationHandler exposes seat holds.
type ReservationHandler struct {
    Reservations *service.ReservationManager
}

// NewReservationHandler panics on a nil service.
func NewReservationHandler(m *service.ReservationManager) *ReservationHandler {
    if m == nil {
        panic("nil reservation manager passed to NewReservationHandler")
    }
    return &ReservationHandler{Reservations: m}
}

type reserveRequest struct {
    SeatIDs    []uint64 `json:"seat_ids" validate:"required,min=1,dive,gt=0"`
    SessionID  string   `json:"session_id" validate:"omitempty,uuid"`
    TTLMinutes int      `json:"ttl_minutes" validate:"gte=0"`
}

// Reserve handles POST /v1/schedules/:schedule_id/reservations.  It holds
// every requested seat or none and answers 201 with the session to commit.
func (h *ReservationHandler) Reserve(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return err
    }
    scheduleID, err := pathID(c, "schedule_id")
    if err != nil {
        return err
    }
    var body reserveRequest
    if err := bind(c, &body); err != nil {
        return err
    }
    res, err := h.Reservations.Reserve(c.Request().Context(), a, service.ReserveRequest{
        ScheduleID: scheduleID,
        SeatIDs:    body.SeatIDs,
        SessionID:  body.SessionID,
        TTL:        time.Duration(body.TTLMinutes) * time.Minute,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, res)
}

// Release handles DELETE /v1/reservations/:session_id.  Releasing an
// unknown or lapsed session answers 200 with released=0.
func (h *ReservationHandler) Release(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return err
    }
    sessionID := c.Param("session_id")
    n, err := h.Reservations.Release(c.Request().Context(), a, sessionID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"session_id": sessionID, "released": n})
}

// Sweep handles POST /v1/admin/holds/sweep.
func (h *ReservationHandler) Sweep(c echo.Context) error {
    n, err := h.Reservations.SweepExpired(c.Request().Context())
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}
