package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/seat-inventory/internal/model"
)

// SeatHoldRepo provides data access to the seat_holds table.  A hold is
// active while expires_at >= now and expired once now is past it; every
// method takes now explicitly so callers and tests agree on the clock.
// The UNIQUE(schedule_id, seat_id) key is what makes a double hold
// impossible.
type SeatHoldRepo struct {
    db *sql.DB
}

// NewSeatHoldRepo returns a new SeatHoldRepo bound to the provided database.
func NewSeatHoldRepo(db *sql.DB) *SeatHoldRepo { return &SeatHoldRepo{db: db} }

const holdColumns = `id, schedule_id, seat_id, user_id, session_id, created_at, expires_at`

func scanHolds(rows *sql.Rows) ([]model.SeatReservation, error) {
    defer rows.Close()
    out := make([]model.SeatReservation, 0)
    for rows.Next() {
        var h model.SeatReservation
        if err := rows.Scan(&h.ID, &h.ScheduleID, &h.SeatID, &h.UserID, &h.SessionID, &h.CreatedAt, &h.ExpiresAt); err != nil {
            return nil, err
        }
        h.CreatedAt = h.CreatedAt.UTC()
        h.ExpiresAt = h.ExpiresAt.UTC()
        out = append(out, h)
    }
    return out, rows.Err()
}

// ActiveByScheduleTx lists the non-expired holds of a schedule.
func (r *SeatHoldRepo) ActiveByScheduleTx(ctx context.Context, tx *sql.Tx, scheduleID uint64, now time.Time) ([]model.SeatReservation, error) {
    rows, err := tx.QueryContext(ctx,
        `SELECT `+holdColumns+` FROM seat_holds WHERE schedule_id = ? AND expires_at >= ?`,
        scheduleID, now)
    if err != nil {
        return nil, err
    }
    return scanHolds(rows)
}

// ListBySession returns every hold of a session, expired or not, so the
// caller can check who owns the session.
func (r *SeatHoldRepo) ListBySession(ctx context.Context, sessionID string) ([]model.SeatReservation, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+holdColumns+` FROM seat_holds WHERE session_id = ? ORDER BY seat_id`, sessionID)
    if err != nil {
        return nil, err
    }
    return scanHolds(rows)
}

// ClearForSeatsTx removes, for the given seats, holds that have lapsed and
// holds that already belong to sessionID.  It runs before inserting new
// holds so an expired but unswept hold never blocks a seat and re-holding
// within the same session refreshes the expiry.
func (r *SeatHoldRepo) ClearForSeatsTx(ctx context.Context, tx *sql.Tx, scheduleID uint64, seatIDs []uint64, sessionID string, now time.Time) error {
    if len(seatIDs) == 0 {
        return nil
    }
    q := `DELETE FROM seat_holds
          WHERE schedule_id = ? AND seat_id IN (` + placeholders(len(seatIDs)) + `)
            AND (expires_at < ? OR session_id = ?)`
    args := append(uintArgs(seatIDs, scheduleID), now, sessionID)
    _, err := tx.ExecContext(ctx, q, args...)
    return err
}

// CreateMultipleTx inserts multiple seat_holds within the provided
// transaction.  A duplicate key error means another session holds one of
// the seats.  Passing an empty slice has no effect and returns nil.
func (r *SeatHoldRepo) CreateMultipleTx(ctx context.Context, tx *sql.Tx, holds []model.SeatReservation) error {
    if len(holds) == 0 {
        return nil
    }
    query := `INSERT INTO seat_holds (schedule_id, seat_id, user_id, session_id, created_at, expires_at) VALUES `
    args := make([]interface{}, 0, len(holds)*6)
    for i, h := range holds {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?)"
        args = append(args, h.ScheduleID, h.SeatID, h.UserID, h.SessionID, h.CreatedAt.UTC(), h.ExpiresAt.UTC())
    }
    _, err := tx.ExecContext(ctx, query, args...)
    return err
}

// HeldByOthersTx returns, with a shared lock, the seats among seatIDs that
// carry an active hold of a different session.  When userID is non-zero
// holds of that user are not counted either (a commit may consume the
// user's own holds from any session).
func (r *SeatHoldRepo) HeldByOthersTx(ctx context.Context, tx *sql.Tx, scheduleID uint64, seatIDs []uint64, sessionID string, userID uint64, now time.Time) ([]uint64, error) {
    if len(seatIDs) == 0 {
        return nil, nil
    }
    q := `SELECT seat_id FROM seat_holds
          WHERE schedule_id = ? AND seat_id IN (` + placeholders(len(seatIDs)) + `)
            AND expires_at >= ? AND session_id <> ? AND user_id <> ?
          ORDER BY seat_id
          LOCK IN SHARE MODE`
    args := append(uintArgs(seatIDs, scheduleID), now, sessionID, userID)
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    return scanIDs(rows)
}

// DeleteSessionOnScheduleTx removes the holds a session has on one
// schedule.
func (r *SeatHoldRepo) DeleteSessionOnScheduleTx(ctx context.Context, tx *sql.Tx, sessionID string, scheduleID uint64) (int64, error) {
    return affected(tx.ExecContext(ctx,
        `DELETE FROM seat_holds WHERE session_id = ? AND schedule_id = ?`, sessionID, scheduleID))
}

// DeleteBySession removes all holds of a session and returns how many rows
// were deleted.
func (r *SeatHoldRepo) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
    return affected(r.db.ExecContext(ctx, `DELETE FROM seat_holds WHERE session_id = ?`, sessionID))
}

// DeleteByUserForSeatsTx removes the user's holds on the given seats.
func (r *SeatHoldRepo) DeleteByUserForSeatsTx(ctx context.Context, tx *sql.Tx, scheduleID, userID uint64, seatIDs []uint64) error {
    if len(seatIDs) == 0 {
        return nil
    }
    q := `DELETE FROM seat_holds
          WHERE schedule_id = ? AND user_id = ? AND seat_id IN (` + placeholders(len(seatIDs)) + `)`
    _, err := tx.ExecContext(ctx, q, uintArgs(seatIDs, scheduleID, userID)...)
    return err
}

// DeleteExpired removes every hold with expires_at < now.  It is the sweep
// and does not care which session or user a hold belongs to.
func (r *SeatHoldRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
    return affected(r.db.ExecContext(ctx, `DELETE FROM seat_holds WHERE expires_at < ?`, now))
}

// CountActiveTx counts the non-expired holds of a schedule.
func (r *SeatHoldRepo) CountActiveTx(ctx context.Context, tx *sql.Tx, scheduleID uint64, now time.Time) (uint32, error) {
    var n uint32
    err := tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM seat_holds WHERE schedule_id = ? AND expires_at >= ?`, scheduleID, now).Scan(&n)
    return n, err
}

func affected(res sql.Result, err error) (int64, error) {
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
