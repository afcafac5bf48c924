package service

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "github.com/iliyamo/seat-inventory/internal/model"
    "github.com/iliyamo/seat-inventory/internal/queue"
    "github.com/iliyamo/seat-inventory/internal/repository"
)

// BookingCommitter turns holds into bookings and drives the booking status
// lifecycle.  Besides the reconciler it is the only writer of the
// seats_available counter.
type BookingCommitter struct {
    store Store
    settings
}

// NewBookingCommitter returns a committer writing to store.
func NewBookingCommitter(store Store, opts ...Option) *BookingCommitter {
    return &BookingCommitter{store: store, settings: newSettings(opts)}
}

// CommitRequest describes a purchase.  When SeatIDs is empty the seats held
// by SessionID for the schedule are committed.
type CommitRequest struct {
    ScheduleID   uint64
    SeatIDs      []uint64
    SessionID    string
    DiscountCode string
    PaymentRef   string
}

// Commit books the seats for the actor.  The booking is CONFIRMED when a
// payment reference is supplied and PENDING otherwise.  Seats booked, or
// held by another user, fail the commit with a *ConflictError.
func (c *BookingCommitter) Commit(ctx context.Context, actor Actor, req CommitRequest) (model.Booking, error) {
    if actor.UserID == 0 {
        return model.Booking{}, ErrForbidden
    }
    sched, err := c.store.GetSchedule(ctx, req.ScheduleID)
    if err != nil {
        return model.Booking{}, translate(err, "schedule", req.ScheduleID)
    }
    now := c.now()
    if err := c.window.Check(sched, now); err != nil {
        return model.Booking{}, err
    }

    var sessionID *string
    var sessionSeats []uint64
    if req.SessionID != "" {
        parsed, err := uuid.Parse(req.SessionID)
        if err != nil {
            return model.Booking{}, invalid("session id must be a UUID")
        }
        sid := parsed.String()
        holds, err := c.store.ListHoldsBySession(ctx, sid)
        if err != nil {
            return model.Booking{}, err
        }
        for _, h := range holds {
            if h.UserID != actor.UserID {
                return model.Booking{}, ErrForbidden
            }
            // the commit consumes the whole session
            if h.ScheduleID != req.ScheduleID {
                return model.Booking{}, invalid("session %s belongs to another schedule", sid)
            }
            if !h.Expired(now) {
                sessionSeats = append(sessionSeats, h.SeatID)
            }
        }
        sessionID = &sid
    }

    ids := dedupeIDs(req.SeatIDs)
    if len(ids) == 0 {
        ids = dedupeIDs(sessionSeats)
    }
    if len(ids) == 0 {
        return model.Booking{}, invalid("no seats to book")
    }

    seats, err := c.store.ListVenueSeats(ctx, sched.VenueID)
    if err != nil {
        return model.Booking{}, err
    }
    index := indexSeats(seats)
    b := model.Booking{
        UserID:     actor.UserID,
        ScheduleID: sched.ID,
        Status:     model.BookingPending,
        SessionID:  sessionID,
        CreatedAt:  now,
        UpdatedAt:  now,
        Seats:      make([]model.SeatBooking, 0, len(ids)),
    }
    var subtotal uint32
    for _, id := range ids {
        seat, ok := index[id]
        if !ok {
            return model.Booking{}, notFound("seat", id)
        }
        price := seatPrice(sched.BasePriceCents, seat.PriceMultiplier)
        subtotal += price
        b.Seats = append(b.Seats, model.SeatBooking{
            ScheduleID: sched.ID,
            SeatID:     id,
            RowLabel:   seat.RowLabel,
            SeatNumber: seat.SeatNumber,
            PriceCents: price,
        })
    }

    total, err := c.discount(req.DiscountCode, subtotal)
    if err != nil {
        return model.Booking{}, err
    }
    b.TotalAmountCents = total
    if code := strings.TrimSpace(req.DiscountCode); code != "" {
        code = strings.ToUpper(code)
        b.DiscountCode = &code
    }
    if ref := strings.TrimSpace(req.PaymentRef); ref != "" {
        b.PaymentRef = &ref
        b.Status = model.BookingConfirmed
    }

    if err := c.store.CreateBooking(ctx, &b, now); err != nil {
        var taken *repository.SeatTakenError
        if errors.As(err, &taken) {
            c.log.Info("commit conflict",
                zap.Uint64("schedule_id", sched.ID),
                zap.Uint64s("seat_ids", taken.SeatIDs),
                zap.Uint64("user_id", actor.UserID))
            return model.Booking{}, c.seatConflict(ctx, c.store, taken, sched.ID, index)
        }
        return model.Booking{}, translate(err, "schedule", sched.ID)
    }

    c.log.Info("booking committed",
        zap.Uint64("booking_id", b.ID),
        zap.Uint64("schedule_id", sched.ID),
        zap.String("status", string(b.Status)),
        zap.Int("seats", len(b.Seats)),
        zap.Uint32("total_cents", b.TotalAmountCents))
    key := queue.RouteBookingCreated
    if b.Status == model.BookingConfirmed {
        key = queue.RouteBookingConfirmed
    }
    c.publish(ctx, key, bookingEvent(b, sched, now))
    return b, nil
}

// Get returns a booking with its seats.  Only the owner, the show creator
// or an admin may read it.
func (c *BookingCommitter) Get(ctx context.Context, actor Actor, bookingID uint64) (model.Booking, error) {
    b, sched, err := c.load(ctx, bookingID)
    if err != nil {
        return model.Booking{}, err
    }
    if err := c.policy.Authorize(actor, b.UserID, sched.CreatedBy); err != nil {
        return model.Booking{}, err
    }
    return b, nil
}

// Cancel moves a PENDING or CONFIRMED booking to CANCELLED and frees its
// seats.  Cancelling a booking that no longer occupies seats changes
// nothing.  Customers cannot cancel once the show has started; admins and
// the show creator can.
func (c *BookingCommitter) Cancel(ctx context.Context, actor Actor, bookingID uint64) (model.Booking, error) {
    b, sched, err := c.load(ctx, bookingID)
    if err != nil {
        return model.Booking{}, err
    }
    rel := c.policy.Relate(actor, b.UserID, sched.CreatedBy)
    if rel == RelNone {
        return model.Booking{}, ErrForbidden
    }
    if rel == RelOwner && b.Status.Occupies() {
        if err := cancelCutoff(sched, c.now()); err != nil {
            return model.Booking{}, err
        }
    }
    return c.transition(ctx, sched, bookingID, model.BookingCancelled, nil)
}

// Refund moves a booking to REFUNDED and frees its seats.  Admin only.
func (c *BookingCommitter) Refund(ctx context.Context, actor Actor, bookingID uint64) (model.Booking, error) {
    if err := c.policy.RequireAdmin(actor); err != nil {
        return model.Booking{}, err
    }
    _, sched, err := c.load(ctx, bookingID)
    if err != nil {
        return model.Booking{}, err
    }
    return c.transition(ctx, sched, bookingID, model.BookingRefunded, nil)
}

// Confirm records the payment of a PENDING booking.  Confirming a booking
// that is already CONFIRMED changes nothing.
func (c *BookingCommitter) Confirm(ctx context.Context, actor Actor, bookingID uint64, paymentRef string) (model.Booking, error) {
    paymentRef = strings.TrimSpace(paymentRef)
    if paymentRef == "" {
        return model.Booking{}, invalid("payment_ref required")
    }
    b, sched, err := c.load(ctx, bookingID)
    if err != nil {
        return model.Booking{}, err
    }
    switch c.policy.Relate(actor, b.UserID, 0) {
    case RelOwner, RelAdmin:
    default:
        return model.Booking{}, ErrForbidden
    }
    return c.transition(ctx, sched, bookingID, model.BookingConfirmed, &paymentRef)
}

// ExpireStalePending moves PENDING bookings older than the pending TTL to
// EXPIRED.  It returns how many bookings changed; failures of single
// bookings are joined and do not stop the batch.
func (c *BookingCommitter) ExpireStalePending(ctx context.Context) (int, error) {
    now := c.now()
    ids, err := c.store.ListStalePendingBookings(ctx, now.Add(-c.pendingTTL), stalePendingBatch)
    if err != nil {
        return 0, err
    }
    var errs []error
    expired := 0
    for _, id := range ids {
        b, changed, err := c.store.TransitionBooking(ctx, id, model.BookingExpired, nil, now)
        if err != nil {
            errs = append(errs, fmt.Errorf("expire booking %d: %w", id, err))
            continue
        }
        if !changed {
            continue
        }
        expired++
        if sched, err := c.store.GetSchedule(ctx, b.ScheduleID); err == nil {
            c.publish(ctx, queue.RouteBookingReleased, bookingEvent(b, sched, now))
        }
    }
    if expired > 0 {
        c.log.Info("stale pending bookings expired", zap.Int("count", expired))
    }
    return expired, errors.Join(errs...)
}

func (c *BookingCommitter) load(ctx context.Context, bookingID uint64) (model.Booking, model.ShowSchedule, error) {
    b, err := c.store.GetBooking(ctx, bookingID)
    if err != nil {
        return model.Booking{}, model.ShowSchedule{}, translate(err, "booking", bookingID)
    }
    sched, err := c.store.GetSchedule(ctx, b.ScheduleID)
    if err != nil {
        return model.Booking{}, model.ShowSchedule{}, translate(err, "schedule", b.ScheduleID)
    }
    return b, sched, nil
}

func (c *BookingCommitter) transition(ctx context.Context, sched model.ShowSchedule, bookingID uint64, to model.BookingStatus, paymentRef *string) (model.Booking, error) {
    now := c.now()
    b, changed, err := c.store.TransitionBooking(ctx, bookingID, to, paymentRef, now)
    if err != nil {
        return model.Booking{}, translate(err, "booking", bookingID)
    }
    if !changed {
        return b, nil
    }
    c.log.Info("booking status changed",
        zap.Uint64("booking_id", b.ID),
        zap.String("status", string(b.Status)))
    key := queue.RouteBookingReleased
    if to == model.BookingConfirmed {
        key = queue.RouteBookingConfirmed
    }
    c.publish(ctx, key, bookingEvent(b, sched, now))
    return b, nil
}

// publish sends an event and only logs a failure; the state change it
// describes has already committed.
func (s settings) publish(ctx context.Context, key string, payload any) {
    if err := s.publisher.Publish(ctx, key, payload); err != nil {
        s.log.Warn("publish event", zap.String("routing_key", key), zap.Error(err))
    }
}
