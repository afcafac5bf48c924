package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/seat-inventory/internal/model"
)

// BookingRepo provides access to bookings and their seat_bookings.  A seat
// booking carries active = 1 while its booking occupies the seat and NULL
// afterwards; UNIQUE(schedule_id, seat_id, active) therefore admits one
// occupying booking per seat and any number of released ones.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateTx inserts the booking and one seat_bookings row per seat.  The
// booking id is written back into b; seat booking ids are only known after
// reloading with GetByIDTx.  A duplicate key on the seat rows
// means the seat is already booked.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    const q = `INSERT INTO bookings
               (user_id, schedule_id, status, total_amount_cents, discount_code, payment_ref, session_id, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, b.UserID, b.ScheduleID, string(b.Status), b.TotalAmountCents,
        b.DiscountCode, b.PaymentRef, b.SessionID, b.CreatedAt, b.UpdatedAt)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    if len(b.Seats) == 0 {
        return nil
    }
    query := `INSERT INTO seat_bookings (booking_id, schedule_id, seat_id, price_cents, active) VALUES `
    args := make([]interface{}, 0, len(b.Seats)*4)
    for i, s := range b.Seats {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, 1)"
        args = append(args, b.ID, b.ScheduleID, s.SeatID, s.PriceCents)
    }
    if _, err := tx.ExecContext(ctx, query, args...); err != nil {
        return err
    }
    for i := range b.Seats {
        b.Seats[i].BookingID = b.ID
        b.Seats[i].ScheduleID = b.ScheduleID
    }
    return nil
}

// BookedSeatsTx returns the seats among seatIDs that are occupied by an
// active seat booking.  forShare adds a shared lock so the answer holds
// until the transaction ends.
func (r *BookingRepo) BookedSeatsTx(ctx context.Context, tx *sql.Tx, scheduleID uint64, seatIDs []uint64, forShare bool) ([]uint64, error) {
    if len(seatIDs) == 0 {
        return nil, nil
    }
    q := `SELECT seat_id FROM seat_bookings
          WHERE schedule_id = ? AND active = 1 AND seat_id IN (` + placeholders(len(seatIDs)) + `)
          ORDER BY seat_id`
    if forShare {
        q += " LOCK IN SHARE MODE"
    }
    rows, err := tx.QueryContext(ctx, q, uintArgs(seatIDs, scheduleID)...)
    if err != nil {
        return nil, err
    }
    return scanIDs(rows)
}

// ActiveSeatIDsTx lists every seat of a schedule held by an active seat
// booking.
func (r *BookingRepo) ActiveSeatIDsTx(ctx context.Context, tx *sql.Tx, scheduleID uint64) ([]uint64, error) {
    rows, err := tx.QueryContext(ctx,
        `SELECT seat_id FROM seat_bookings WHERE schedule_id = ? AND active = 1`, scheduleID)
    if err != nil {
        return nil, err
    }
    return scanIDs(rows)
}

// CountOccupyingTx counts the seat bookings of a schedule whose booking is
// in an occupying status.  It reads the booking status rather than the
// active flag because the status is the ground truth the reconciler trusts.
func (r *BookingRepo) CountOccupyingTx(ctx context.Context, tx *sql.Tx, scheduleID uint64) (uint32, error) {
    var n uint32
    err := tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM seat_bookings sb
         JOIN bookings b ON b.id = sb.booking_id
         WHERE sb.schedule_id = ? AND b.status IN ('PENDING', 'CONFIRMED')
         LOCK IN SHARE MODE`, scheduleID).Scan(&n)
    return n, err
}

// ScheduleOfBooking returns the schedule of a booking without locking.
func (r *BookingRepo) ScheduleOfBooking(ctx context.Context, id uint64) (uint64, error) {
    var scheduleID uint64
    err := r.db.QueryRowContext(ctx, `SELECT schedule_id FROM bookings WHERE id = ?`, id).Scan(&scheduleID)
    if errors.Is(err, sql.ErrNoRows) {
        return 0, ErrNotFound
    }
    return scheduleID, err
}

// LockStatusTx locks a booking row and returns its status.
func (r *BookingRepo) LockStatusTx(ctx context.Context, tx *sql.Tx, id uint64) (model.BookingStatus, error) {
    var status string
    err := tx.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = ? FOR UPDATE`, id).Scan(&status)
    if errors.Is(err, sql.ErrNoRows) {
        return "", ErrNotFound
    }
    return model.BookingStatus(status), err
}

// UpdateStatusTx writes a new status.  paymentRef is stored when non-nil.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus, paymentRef *string, now time.Time) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE bookings SET status = ?, payment_ref = COALESCE(?, payment_ref), updated_at = ? WHERE id = ?`,
        string(status), paymentRef, now, id)
    return err
}

// ReleaseSeatsTx clears the active flag of a booking's seats and returns how
// many seats were released.  Seats already released are not counted, so a
// repeated call releases nothing.
func (r *BookingRepo) ReleaseSeatsTx(ctx context.Context, tx *sql.Tx, id uint64) (int64, error) {
    return affected(tx.ExecContext(ctx,
        `UPDATE seat_bookings SET active = NULL WHERE booking_id = ? AND active = 1`, id))
}

const bookingProjection = `SELECT b.id, b.user_id, b.schedule_id, b.status, b.total_amount_cents,
                                  b.discount_code, b.payment_ref, b.session_id, b.created_at, b.updated_at,
                                  sb.id, sb.seat_id, s.row_label, s.seat_number, sb.price_cents
                           FROM bookings b
                           LEFT JOIN seat_bookings sb ON sb.booking_id = b.id
                           LEFT JOIN seats s ON s.id = sb.seat_id
                           WHERE b.id = ?
                           ORDER BY s.row_label, s.seat_number`

// GetByID loads a booking with its seats in one query.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
    return r.get(ctx, r.db, id)
}

// GetByIDTx is GetByID inside the caller's transaction.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
    return r.get(ctx, tx, id)
}

func (r *BookingRepo) get(ctx context.Context, q querier, id uint64) (model.Booking, error) {
    rows, err := q.QueryContext(ctx, bookingProjection, id)
    if err != nil {
        return model.Booking{}, err
    }
    defer rows.Close()
    var (
        b     model.Booking
        found bool
    )
    b.Seats = []model.SeatBooking{}
    for rows.Next() {
        var (
            status                          string
            discount, payment, session      sql.NullString
            sbID, seatID, seatNo, priceCent sql.NullInt64
            rowLabel                        sql.NullString
        )
        if err := rows.Scan(&b.ID, &b.UserID, &b.ScheduleID, &status, &b.TotalAmountCents,
            &discount, &payment, &session, &b.CreatedAt, &b.UpdatedAt,
            &sbID, &seatID, &rowLabel, &seatNo, &priceCent); err != nil {
            return model.Booking{}, err
        }
        found = true
        b.Status = model.BookingStatus(status)
        b.DiscountCode = nullString(discount)
        b.PaymentRef = nullString(payment)
        b.SessionID = nullString(session)
        if sbID.Valid {
            b.Seats = append(b.Seats, model.SeatBooking{
                ID:         uint64(sbID.Int64),
                BookingID:  b.ID,
                ScheduleID: b.ScheduleID,
                SeatID:     uint64(seatID.Int64),
                RowLabel:   rowLabel.String,
                SeatNumber: uint32(seatNo.Int64),
                PriceCents: uint32(priceCent.Int64),
            })
        }
    }
    if err := rows.Err(); err != nil {
        return model.Booking{}, err
    }
    if !found {
        return model.Booking{}, ErrNotFound
    }
    b.CreatedAt = b.CreatedAt.UTC()
    b.UpdatedAt = b.UpdatedAt.UTC()
    return b, nil
}

// ListStalePending returns ids of PENDING bookings created before cutoff,
// oldest first, at most limit of them.
func (r *BookingRepo) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]uint64, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id FROM bookings WHERE status = 'PENDING' AND created_at < ? ORDER BY created_at LIMIT ?`,
        cutoff, limit)
    if err != nil {
        return nil, err
    }
    return scanIDs(rows)
}

func nullString(ns sql.NullString) *string {
    if !ns.Valid {
        return nil
    }
    s := ns.String
    return &s
}
