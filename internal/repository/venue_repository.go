package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/seat-inventory/internal/model"
)

// VenueRepo provides read access to the venues table.  Venues are managed
// outside this service; the inventory only needs their capacity.
type VenueRepo struct {
    db *sql.DB
}

// NewVenueRepo constructs a VenueRepo with the given DB handle.
func NewVenueRepo(db *sql.DB) *VenueRepo {
    return &VenueRepo{db: db}
}

// GetByID loads a venue.  ErrNotFound is returned when no row matches.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (model.Venue, error) {
    return r.get(ctx, r.db, id)
}

// GetByIDTx is GetByID inside the caller's transaction.
func (r *VenueRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Venue, error) {
    return r.get(ctx, tx, id)
}

func (r *VenueRepo) get(ctx context.Context, q querier, id uint64) (model.Venue, error) {
    var v model.Venue
    err := q.QueryRowContext(ctx, `SELECT id, name, capacity FROM venues WHERE id = ?`, id).
        Scan(&v.ID, &v.Name, &v.Capacity)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Venue{}, ErrNotFound
    }
    return v, err
}
