package service

import (
    "context"
    "time"

    "github.com/iliyamo/seat-inventory/internal/model"
)

// Store is the persistence contract of the inventory.  Implementations
// report missing rows with repository.ErrNotFound and lost seat races with
// *repository.SeatTakenError; every method is a single transaction.
type Store interface {
    GetVenue(ctx context.Context, id uint64) (model.Venue, error)
    ListVenueSeats(ctx context.Context, venueID uint64) ([]model.Seat, error)
    UpdateSeatPriceMultiplier(ctx context.Context, seatID uint64, multiplier float64) error

    GetSchedule(ctx context.Context, id uint64) (model.ShowSchedule, error)
    // ListScheduleIDs lists the schedules of a venue, or all of them when
    // venueID is 0.
    ListScheduleIDs(ctx context.Context, venueID uint64) ([]uint64, error)
    LoadOccupancy(ctx context.Context, scheduleID uint64, now time.Time) (model.Occupancy, error)

    ListHoldsBySession(ctx context.Context, sessionID string) ([]model.SeatReservation, error)
    CreateHolds(ctx context.Context, holds []model.SeatReservation, now time.Time) error
    DeleteHoldsBySession(ctx context.Context, sessionID string) (int64, error)
    DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error)

    CreateBooking(ctx context.Context, b *model.Booking, now time.Time) error
    GetBooking(ctx context.Context, id uint64) (model.Booking, error)
    TransitionBooking(ctx context.Context, id uint64, to model.BookingStatus, paymentRef *string, now time.Time) (model.Booking, bool, error)
    ListStalePendingBookings(ctx context.Context, cutoff time.Time, limit int) ([]uint64, error)

    ReconcileSchedule(ctx context.Context, id uint64, now time.Time, fn func(model.ScheduleSnapshot) model.ScheduleCounts) (model.ScheduleSnapshot, model.ScheduleCounts, error)
}
