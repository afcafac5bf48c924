package repository // repository defines data access for seats

import (
    "context"      // context allows query cancellation and timeouts
    "database/sql" // sql provides DB primitives

    "github.com/iliyamo/seat-inventory/internal/model"
)

// SeatRepo provides methods to work with the seats of a venue.
type SeatRepo struct {
    db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
    return &SeatRepo{db: db}
}

// ListByVenue retrieves all seats of a venue ordered by row_label then
// seat_number.  A venue without seats yields an empty slice.
func (r *SeatRepo) ListByVenue(ctx context.Context, venueID uint64) ([]model.Seat, error) {
    const q = `SELECT id, venue_id, row_label, seat_number, category, price_multiplier
               FROM seats
               WHERE venue_id = ?
               ORDER BY row_label, seat_number`
    rows, err := r.db.QueryContext(ctx, q, venueID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Seat, 0)
    for rows.Next() {
        var s model.Seat
        var category string
        if err := rows.Scan(&s.ID, &s.VenueID, &s.RowLabel, &s.SeatNumber, &category, &s.PriceMultiplier); err != nil {
            return nil, err
        }
        s.Category = model.SeatCategory(category)
        out = append(out, s)
    }
    return out, rows.Err()
}

// CountByVenueTx counts the seat rows of a venue.  The reconciler uses it as
// the ground truth for total_seats.
func (r *SeatRepo) CountByVenueTx(ctx context.Context, tx *sql.Tx, venueID uint64) (uint32, error) {
    var n uint32
    err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM seats WHERE venue_id = ?`, venueID).Scan(&n)
    return n, err
}

// UpdatePriceMultiplier changes the one mutable attribute of a seat.
func (r *SeatRepo) UpdatePriceMultiplier(ctx context.Context, id uint64, multiplier float64) error {
    res, err := r.db.ExecContext(ctx, `UPDATE seats SET price_multiplier = ? WHERE id = ?`, multiplier, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotFound
    }
    return nil
}
