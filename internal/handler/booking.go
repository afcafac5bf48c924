package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seat-inventory/internal/service"
)

// BookingHandler exposes commit and the booking status changes.
type BookingHandler struct {
    Bookings *service.BookingCommitter
}

// NewBookingHandler panics on a nil service.
func NewBookingHandler(b *service.BookingCommitter) *BookingHandler {
    if b == nil {
        panic("nil booking committer passed to NewBookingHandler")
    }
    return &BookingHandler{Bookings: b}
}

type commitRequest struct {
    SeatIDs      []uint64 `json:"seat_ids" validate:"omitempty,dive,gt=0"`
    SessionID    string   `json:"session_id" validate:"omitempty,uuid"`
    DiscountCode string   `json:"discount_code" validate:"omitempty,promo"`
    PaymentRef   string   `json:"payment_ref" validate:"omitempty,max=128"`
}

// Commit handles POST /v1/schedules/:schedule_id/bookings.  Without
// seat_ids the seats held by session_id are booked.
func (h *BookingHandler) Commit(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return err
    }
    scheduleID, err := pathID(c, "schedule_id")
    if err != nil {
        return err
    }
    var body commitRequest
    if err := bind(c, &body); err != nil {
        return err
    }
    b, err := h.Bookings.Commit(c.Request().Context(), a, service.CommitRequest{
        ScheduleID:   scheduleID,
        SeatIDs:      body.SeatIDs,
        SessionID:    body.SessionID,
        DiscountCode: body.DiscountCode,
        PaymentRef:   body.PaymentRef,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, b)
}

// Get handles GET /v1/bookings/:booking_id.
func (h *BookingHandler) Get(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return err
    }
    id, err := pathID(c, "booking_id")
    if err != nil {
        return err
    }
    b, err := h.Bookings.Get(c.Request().Context(), a, id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

// Cancel handles POST /v1/bookings/:booking_id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return err
    }
    id, err := pathID(c, "booking_id")
    if err != nil {
        return err
    }
    b, err := h.Bookings.Cancel(c.Request().Context(), a, id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

type confirmRequest struct {
    PaymentRef string `json:"payment_ref" validate:"required,max=128"`
}

// Confirm handles POST /v1/bookings/:booking_id/confirm.
func (h *BookingHandler) Confirm(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return err
    }
    id, err := pathID(c, "booking_id")
    if err != nil {
        return err
    }
    var body confirmRequest
    if err := bind(c, &body); err != nil {
        return err
    }
    b, err := h.Bookings.Confirm(c.Request().Context(), a, id, body.PaymentRef)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

// Refund handles POST /v1/admin/bookings/:booking_id/refund.
func (h *BookingHandler) Refund(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return err
    }
    id, err := pathID(c, "booking_id")
    if err != nil {
        return err
    }
    b, err := h.Bookings.Refund(c.Request().Context(), a, id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, b)
}
