package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/seat-inventory/internal/model"
)

// MySQLStore composes the table repositories into the transactional
// operations of the inventory.  Each exported method is one transaction.
// Transactions that write the schedule counters lock the schedule row
// first and the booking row second.
type MySQLStore struct {
    db        *sql.DB
    Venues    *VenueRepo
    Seats     *SeatRepo
    Schedules *ScheduleRepo
    Holds     *SeatHoldRepo
    Bookings  *BookingRepo
}

// NewMySQLStore wires every repository to db.
func NewMySQLStore(db *sql.DB) *MySQLStore {
    return &MySQLStore{
        db:        db,
        Venues:    NewVenueRepo(db),
        Seats:     NewSeatRepo(db),
        Schedules: NewScheduleRepo(db),
        Holds:     NewSeatHoldRepo(db),
        Bookings:  NewBookingRepo(db),
    }
}

// DB exposes the underlying handle for health checks.
func (s *MySQLStore) DB() *sql.DB { return s.db }

// withTx runs fn in a transaction, committing when fn returns nil and
// rolling back otherwise.
func (s *MySQLStore) withTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
    tx, err := s.db.BeginTx(ctx, opts)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(tx); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

func (s *MySQLStore) GetVenue(ctx context.Context, id uint64) (model.Venue, error) {
    return s.Venues.GetByID(ctx, id)
}

func (s *MySQLStore) ListVenueSeats(ctx context.Context, venueID uint64) ([]model.Seat, error) {
    return s.Seats.ListByVenue(ctx, venueID)
}

func (s *MySQLStore) UpdateSeatPriceMultiplier(ctx context.Context, seatID uint64, multiplier float64) error {
    return s.Seats.UpdatePriceMultiplier(ctx, seatID, multiplier)
}

func (s *MySQLStore) GetSchedule(ctx context.Context, id uint64) (model.ShowSchedule, error) {
    return s.Schedules.GetByID(ctx, id)
}

func (s *MySQLStore) ListScheduleIDs(ctx context.Context, venueID uint64) ([]uint64, error) {
    return s.Schedules.ListIDs(ctx, venueID)
}

// LoadOccupancy reads booked seats and active holds from one read-only
// snapshot.
func (s *MySQLStore) LoadOccupancy(ctx context.Context, scheduleID uint64, now time.Time) (model.Occupancy, error) {
    occ := model.NewOccupancy()
    err := s.withTx(ctx, &sql.TxOptions{ReadOnly: true}, func(tx *sql.Tx) error {
        booked, err := s.Bookings.ActiveSeatIDsTx(ctx, tx, scheduleID)
        if err != nil {
            return err
        }
        for _, id := range booked {
            occ.Booked[id] = struct{}{}
        }
        holds, err := s.Holds.ActiveByScheduleTx(ctx, tx, scheduleID, now)
        if err != nil {
            return err
        }
        for _, h := range holds {
            occ.Held[h.SeatID] = h
        }
        return nil
    })
    if err != nil {
        return model.Occupancy{}, err
    }
    return occ, nil
}

func (s *MySQLStore) ListHoldsBySession(ctx context.Context, sessionID string) ([]model.SeatReservation, error) {
    return s.Holds.ListBySession(ctx, sessionID)
}

// CreateHolds inserts a batch of holds for one schedule and session.  The
// insert claims the seats through the unique key; the locking read that
// follows catches seats booked meanwhile.  Any lost seat fails the whole
// batch with *SeatTakenError and nothing is kept.
func (s *MySQLStore) CreateHolds(ctx context.Context, holds []model.SeatReservation, now time.Time) error {
    if len(holds) == 0 {
        return nil
    }
    scheduleID, sessionID := holds[0].ScheduleID, holds[0].SessionID
    seatIDs := make([]uint64, 0, len(holds))
    for _, h := range holds {
        seatIDs = append(seatIDs, h.SeatID)
    }
    err := s.withTx(ctx, nil, func(tx *sql.Tx) error {
        if err := s.Holds.ClearForSeatsTx(ctx, tx, scheduleID, seatIDs, sessionID, now); err != nil {
            return err
        }
        if err := s.Holds.CreateMultipleTx(ctx, tx, holds); err != nil {
            if isDuplicate(err) {
                taken, qerr := s.Holds.HeldByOthersTx(ctx, tx, scheduleID, seatIDs, sessionID, 0, now)
                if qerr == nil && len(taken) > 0 {
                    return &SeatTakenError{SeatIDs: taken}
                }
            }
            return err
        }
        booked, err := s.Bookings.BookedSeatsTx(ctx, tx, scheduleID, seatIDs, true)
        if err != nil {
            return err
        }
        if len(booked) > 0 {
            return &SeatTakenError{SeatIDs: booked}
        }
        return nil
    })
    if isContention(err) {
        return &SeatTakenError{SeatIDs: seatIDs}
    }
    return err
}

func (s *MySQLStore) DeleteHoldsBySession(ctx context.Context, sessionID string) (int64, error) {
    return s.Holds.DeleteBySession(ctx, sessionID)
}

func (s *MySQLStore) DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
    return s.Holds.DeleteExpired(ctx, now)
}

// CreateBooking persists b and its seats, consumes the holds it supersedes
// and decrements the schedule counter, all in one transaction.  b is
// replaced by the stored projection on success.
func (s *MySQLStore) CreateBooking(ctx context.Context, b *model.Booking, now time.Time) error {
    seatIDs := b.SeatIDs()
    sessionID := ""
    if b.SessionID != nil {
        sessionID = *b.SessionID
    }
    err := s.withTx(ctx, nil, func(tx *sql.Tx) error {
        if err := s.Schedules.LockTx(ctx, tx, b.ScheduleID); err != nil {
            return err
        }
        if sessionID != "" {
            if _, err := s.Holds.DeleteSessionOnScheduleTx(ctx, tx, sessionID, b.ScheduleID); err != nil {
                return err
            }
        }
        if err := s.Holds.DeleteByUserForSeatsTx(ctx, tx, b.ScheduleID, b.UserID, seatIDs); err != nil {
            return err
        }
        held, err := s.Holds.HeldByOthersTx(ctx, tx, b.ScheduleID, seatIDs, sessionID, b.UserID, now)
        if err != nil {
            return err
        }
        booked, err := s.Bookings.BookedSeatsTx(ctx, tx, b.ScheduleID, seatIDs, true)
        if err != nil {
            return err
        }
        if taken := unionIDs(held, booked); len(taken) > 0 {
            return &SeatTakenError{SeatIDs: taken}
        }
        if err := s.Bookings.CreateTx(ctx, tx, b); err != nil {
            return err
        }
        if err := s.Schedules.DecrementAvailableTx(ctx, tx, b.ScheduleID, len(seatIDs)); err != nil {
            return err
        }
        stored, err := s.Bookings.GetByIDTx(ctx, tx, b.ID)
        if err != nil {
            return err
        }
        *b = stored
        return nil
    })
    if isContention(err) {
        return &SeatTakenError{SeatIDs: seatIDs}
    }
    return err
}

func (s *MySQLStore) GetBooking(ctx context.Context, id uint64) (model.Booking, error) {
    return s.Bookings.GetByID(ctx, id)
}

// TransitionBooking moves a booking to status to.  Releasing transitions
// free the seats and give them back to seats_available, capped at
// total_seats.  changed is false when nothing was written.
func (s *MySQLStore) TransitionBooking(ctx context.Context, id uint64, to model.BookingStatus, paymentRef *string, now time.Time) (model.Booking, bool, error) {
    scheduleID, err := s.Bookings.ScheduleOfBooking(ctx, id)
    if err != nil {
        return model.Booking{}, false, err
    }
    var (
        out     model.Booking
        changed bool
    )
    err = s.withTx(ctx, nil, func(tx *sql.Tx) error {
        if err := s.Schedules.LockTx(ctx, tx, scheduleID); err != nil {
            return err
        }
        from, err := s.Bookings.LockStatusTx(ctx, tx, id)
        if err != nil {
            return err
        }
        effect, err := model.PlanTransition(from, to)
        if err != nil {
            return err
        }
        switch effect {
        case model.StatusOnly:
            if err := s.Bookings.UpdateStatusTx(ctx, tx, id, to, paymentRef, now); err != nil {
                return err
            }
            changed = true
        case model.Release:
            if err := s.Bookings.UpdateStatusTx(ctx, tx, id, to, paymentRef, now); err != nil {
                return err
            }
            n, err := s.Bookings.ReleaseSeatsTx(ctx, tx, id)
            if err != nil {
                return err
            }
            if n > 0 {
                if err := s.Schedules.IncrementAvailableTx(ctx, tx, scheduleID, int(n)); err != nil {
                    return err
                }
            }
            changed = true
        }
        out, err = s.Bookings.GetByIDTx(ctx, tx, id)
        return err
    })
    if err != nil {
        return model.Booking{}, false, err
    }
    return out, changed, nil
}

func (s *MySQLStore) ListStalePendingBookings(ctx context.Context, cutoff time.Time, limit int) ([]uint64, error) {
    return s.Bookings.ListStalePending(ctx, cutoff, limit)
}

// ReconcileSchedule locks the schedule, reads the ground truth, asks fn for
// the corrected counters and writes them when they differ.
func (s *MySQLStore) ReconcileSchedule(ctx context.Context, id uint64, now time.Time, fn func(model.ScheduleSnapshot) model.ScheduleCounts) (model.ScheduleSnapshot, model.ScheduleCounts, error) {
    var (
        snap   model.ScheduleSnapshot
        counts model.ScheduleCounts
    )
    err := s.withTx(ctx, nil, func(tx *sql.Tx) error {
        if err := s.Schedules.LockTx(ctx, tx, id); err != nil {
            return err
        }
        sched, err := s.Schedules.GetByIDTx(ctx, tx, id)
        if err != nil {
            return err
        }
        venue, err := s.Venues.GetByIDTx(ctx, tx, sched.VenueID)
        if err != nil && !errors.Is(err, ErrNotFound) {
            return err
        }
        physical, err := s.Seats.CountByVenueTx(ctx, tx, sched.VenueID)
        if err != nil {
            return err
        }
        booked, err := s.Bookings.CountOccupyingTx(ctx, tx, id)
        if err != nil {
            return err
        }
        held, err := s.Holds.CountActiveTx(ctx, tx, id, now)
        if err != nil {
            return err
        }
        snap = model.ScheduleSnapshot{
            Schedule:      sched,
            VenueCapacity: venue.Capacity,
            PhysicalSeats: physical,
            ActiveBooked:  booked,
            ActiveHeld:    held,
        }
        counts = fn(snap)
        if counts.TotalSeats == sched.TotalSeats && counts.SeatsAvailable == sched.SeatsAvailable {
            return nil
        }
        return s.Schedules.SetCountsTx(ctx, tx, id, counts)
    })
    if err != nil {
        return model.ScheduleSnapshot{}, model.ScheduleCounts{}, err
    }
    return snap, counts, nil
}

// unionIDs merges two ascending id lists without duplicates.
func unionIDs(a, b []uint64) []uint64 {
    seen := make(map[uint64]struct{}, len(a)+len(b))
    var out []uint64
    for _, list := range [][]uint64{a, b} {
        for _, id := range list {
            if _, ok := seen[id]; ok {
                continue
            }
            seen[id] = struct{}{}
            out = append(out, id)
        }
    }
    sortIDs(out)
    return out
}
