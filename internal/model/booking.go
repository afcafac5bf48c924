package model

import (
    "fmt"
    "time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
    BookingPending   BookingStatus = "PENDING"
    BookingConfirmed BookingStatus = "CONFIRMED"
    BookingCancelled BookingStatus = "CANCELLED"
    BookingRefunded  BookingStatus = "REFUNDED"
    BookingExpired   BookingStatus = "EXPIRED"
)

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
    switch s {
    case BookingPending, BookingConfirmed, BookingCancelled, BookingRefunded, BookingExpired:
        return true
    }
    return false
}

// Occupies reports whether a booking in this status holds its seats.
func (s BookingStatus) Occupies() bool {
    return s == BookingPending || s == BookingConfirmed
}

// Booking is the aggregate root of a purchase.  It owns its SeatBookings;
// deleting a booking removes them.
//
// Fields:
//  ID               - primary key identifier.
//  UserID           - customer who made the booking.
//  ScheduleID       - schedule being booked.
//  Status           - PENDING, CONFIRMED, CANCELLED, REFUNDED or EXPIRED.
//  TotalAmountCents - total after discount.
//  DiscountCode     - promotion code applied at commit, if any.
//  PaymentRef       - external payment reference, if any.
//  SessionID        - checkout session whose holds the booking superseded.
//  Seats            - flat seat projection, loaded with the booking.
type Booking struct {
    ID               uint64        `json:"id"`                      // bookings.id
    UserID           uint64        `json:"user_id"`                 // bookings.user_id
    ScheduleID       uint64        `json:"schedule_id"`             // bookings.schedule_id
    Status           BookingStatus `json:"status"`                  // bookings.status
    TotalAmountCents uint32        `json:"total_amount_cents"`      // bookings.total_amount_cents
    DiscountCode     *string       `json:"discount_code,omitempty"` // bookings.discount_code (nullable)
    PaymentRef       *string       `json:"payment_ref,omitempty"`   // bookings.payment_ref (nullable)
    SessionID        *string       `json:"session_id,omitempty"`    // bookings.session_id (nullable)
    CreatedAt        time.Time     `json:"created_at"`              // bookings.created_at
    UpdatedAt        time.Time     `json:"updated_at"`              // bookings.updated_at
    Seats            []SeatBooking `json:"seats"`
}

// SeatIDs lists the ids of the booked seats in booking order.
func (b Booking) SeatIDs() []uint64 {
    ids := make([]uint64, 0, len(b.Seats))
    for _, s := range b.Seats {
        ids = append(ids, s.SeatID)
    }
    return ids
}

// SeatBooking is one seat of a booking.  RowLabel and SeatNumber come from
// the seats join and are read-only.
type SeatBooking struct {
    ID         uint64 `json:"id"`          // seat_bookings.id
    BookingID  uint64 `json:"booking_id"`  // seat_bookings.booking_id
    ScheduleID uint64 `json:"schedule_id"` // seat_bookings.schedule_id
    SeatID     uint64 `json:"seat_id"`     // seat_bookings.seat_id
    RowLabel   string `json:"row_label"`   // seats.row_label
    SeatNumber uint32 `json:"seat_number"` // seats.seat_number
    PriceCents uint32 `json:"price_cents"` // seat_bookings.price_cents
}

// Label renders the seat position, e.g. "A1".
func (s SeatBooking) Label() string { return fmt.Sprintf("%s%d", s.RowLabel, s.SeatNumber) }
