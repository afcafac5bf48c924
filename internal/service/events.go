package service

import (
    "context"
    "time"

    "github.com/iliyamo/seat-inventory/internal/model"
    "github.com/iliyamo/seat-inventory/internal/queue"
)

// EventPublisher delivers domain events.  Publishing happens after the
// transaction committed; a failure is logged and never undoes the
// operation.
type EventPublisher interface {
    Publish(ctx context.Context, routingKey string, payload any) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

func bookingEvent(b model.Booking, s model.ShowSchedule, at time.Time) queue.BookingEvent {
    seats := make([]queue.EventSeat, 0, len(b.Seats))
    for _, seat := range b.Seats {
        seats = append(seats, queue.EventSeat{
            SeatID:     seat.SeatID,
            Label:      seat.Label(),
            PriceCents: seat.PriceCents,
        })
    }
    return queue.BookingEvent{
        BookingID:        b.ID,
        UserID:           b.UserID,
        ScheduleID:       b.ScheduleID,
        VenueID:          s.VenueID,
        Status:           string(b.Status),
        TotalAmountCents: b.TotalAmountCents,
        Seats:            seats,
        StartsAt:         s.StartsAt,
        OccurredAt:       at,
    }
}
