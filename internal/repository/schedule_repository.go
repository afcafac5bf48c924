package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/seat-inventory/internal/model"
)

// ScheduleRepo provides access to show_schedules.  The seats_available
// counter is written only through DecrementAvailableTx/IncrementAvailableTx
// (booking commit and release) and SetCountsTx (reconciliation).
type ScheduleRepo struct {
    db *sql.DB
}

// NewScheduleRepo returns a ScheduleRepo bound to db.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

const scheduleSelect = `SELECT s.id, s.show_id, s.venue_id, s.starts_at, s.total_seats, s.seats_available,
                               sh.category, sh.base_price_cents, sh.created_by
                        FROM show_schedules s
                        JOIN shows sh ON sh.id = s.show_id
                        WHERE s.id = ?`

// GetByID loads a schedule joined with its show.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uint64) (model.ShowSchedule, error) {
    return scanSchedule(r.db.QueryRowContext(ctx, scheduleSelect, id))
}

// GetByIDTx loads a schedule inside the caller's transaction.  Call
// LockTx first when the counters are about to be written.
func (r *ScheduleRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.ShowSchedule, error) {
    return scanSchedule(tx.QueryRowContext(ctx, scheduleSelect, id))
}

func scanSchedule(row *sql.Row) (model.ShowSchedule, error) {
    var s model.ShowSchedule
    err := row.Scan(&s.ID, &s.ShowID, &s.VenueID, &s.StartsAt, &s.TotalSeats, &s.SeatsAvailable,
        &s.ShowCategory, &s.BasePriceCents, &s.CreatedBy)
    if errors.Is(err, sql.ErrNoRows) {
        return model.ShowSchedule{}, ErrNotFound
    }
    if err != nil {
        return model.ShowSchedule{}, err
    }
    s.StartsAt = s.StartsAt.UTC()
    return s, nil
}

// LockTx takes the row lock on a schedule.  Every transaction that writes
// the counters locks the schedule row before any booking row so lock order
// is the same everywhere.
func (r *ScheduleRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    var got uint64
    err := tx.QueryRowContext(ctx, `SELECT id FROM show_schedules WHERE id = ? FOR UPDATE`, id).Scan(&got)
    if errors.Is(err, sql.ErrNoRows) {
        return ErrNotFound
    }
    return err
}

// ListIDs returns schedule ids ordered by id.  venueID 0 lists every
// schedule.
func (r *ScheduleRepo) ListIDs(ctx context.Context, venueID uint64) ([]uint64, error) {
    var (
        rows *sql.Rows
        err  error
    )
    if venueID == 0 {
        rows, err = r.db.QueryContext(ctx, `SELECT id FROM show_schedules ORDER BY id`)
    } else {
        rows, err = r.db.QueryContext(ctx, `SELECT id FROM show_schedules WHERE venue_id = ? ORDER BY id`, venueID)
    }
    if err != nil {
        return nil, err
    }
    ids, err := scanIDs(rows)
    if ids == nil {
        ids = []uint64{}
    }
    return ids, err
}

// DecrementAvailableTx subtracts n from seats_available, never going below
// zero.
func (r *ScheduleRepo) DecrementAvailableTx(ctx context.Context, tx *sql.Tx, id uint64, n int) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE show_schedules
         SET seats_available = IF(seats_available >= ?, seats_available - ?, 0)
         WHERE id = ?`, n, n, id)
    return err
}

// IncrementAvailableTx adds n to seats_available, never exceeding
// total_seats.
func (r *ScheduleRepo) IncrementAvailableTx(ctx context.Context, tx *sql.Tx, id uint64, n int) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE show_schedules
         SET seats_available = LEAST(seats_available + ?, total_seats)
         WHERE id = ?`, n, id)
    return err
}

// SetCountsTx overwrites both counters.  Only the reconciler calls it.
func (r *ScheduleRepo) SetCountsTx(ctx context.Context, tx *sql.Tx, id uint64, c model.ScheduleCounts) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE show_schedules SET total_seats = ?, seats_available = ? WHERE id = ?`,
        c.TotalSeats, c.SeatsAvailable, id)
    return err
}
