// Package queue defines the events exchanged over RabbitMQ, the publisher
// used by the services and the audit consumer that records them.
package queue

import "time"

// Exchange is the topic exchange every inventory event is published to.
const Exchange = "seat_inventory.events"

// Routing keys.
const (
    RouteBookingCreated        = "booking.created"
    RouteBookingConfirmed      = "booking.confirmed"
    RouteBookingReleased       = "booking.released"
    RouteInventoryInconsistent = "inventory.inconsistent"
)

// EventSeat is one seat of a booking event.
type EventSeat struct {
    SeatID     uint64 `json:"seat_id"`
    Label      string `json:"label"`
    PriceCents uint32 `json:"price_cents"`
}

// BookingEvent is published when a booking is created or changes status.
// It carries enough for downstream consumers to log or notify without
// querying the database.  Status tells released bookings apart
// (CANCELLED, REFUNDED or EXPIRED).
type BookingEvent struct {
    BookingID        uint64      `json:"booking_id"`
    UserID           uint64      `json:"user_id"`
    ScheduleID       uint64      `json:"schedule_id"`
    VenueID          uint64      `json:"venue_id"`
    Status           string      `json:"status"`
    TotalAmountCents uint32      `json:"total_amount_cents"`
    Seats            []EventSeat `json:"seats"`
    StartsAt         time.Time   `json:"starts_at"`
    OccurredAt       time.Time   `json:"occurred_at"`
}

// InconsistencyEvent is published by the reconciler when stored data
// disagrees with itself.
type InconsistencyEvent struct {
    ScheduleID  uint64    `json:"schedule_id"`
    VenueID     uint64    `json:"venue_id"`
    Anomalies   []string  `json:"anomalies"`
    TotalBefore uint32    `json:"total_before"`
    TotalAfter  uint32    `json:"total_after"`
    Booked      uint32    `json:"booked"`
    Held        uint32    `json:"held"`
    OccurredAt  time.Time `json:"occurred_at"`
}
