package service

import (
    "context"
    "errors"
    "math"
    "sort"

    "go.uber.org/zap"

    "github.com/iliyamo/seat-inventory/internal/model"
    "github.com/iliyamo/seat-inventory/internal/repository"
)

// Inventory answers "is this seat free for this schedule right now".  Every
// answer is derived from one occupancy snapshot; the cached seats_available
// counter is reported but never trusted for per-seat decisions.
type Inventory struct {
    store Store
    settings
}

// NewInventory returns an Inventory reading from store.
func NewInventory(store Store, opts ...Option) *Inventory {
    return &Inventory{store: store, settings: newSettings(opts)}
}

// IsAvailable reports whether the seat has neither an occupying booking nor
// an active hold for the schedule.  Unknown seats or schedules yield false
// with a *NotFoundError.
func (i *Inventory) IsAvailable(ctx context.Context, seatID, scheduleID uint64) (bool, error) {
    sched, err := i.store.GetSchedule(ctx, scheduleID)
    if err != nil {
        return false, translate(err, "schedule", scheduleID)
    }
    seats, err := i.store.ListVenueSeats(ctx, sched.VenueID)
    if err != nil {
        return false, err
    }
    if _, ok := indexSeats(seats)[seatID]; !ok {
        return false, notFound("seat", seatID)
    }
    occ, err := i.store.LoadOccupancy(ctx, scheduleID, i.now())
    if err != nil {
        return false, err
    }
    return occ.State(seatID) == model.SeatAvailable, nil
}

// AvailableSeats lists the venue seats that are neither booked nor actively
// held for the schedule, ordered by row and number.
func (i *Inventory) AvailableSeats(ctx context.Context, venueID, scheduleID uint64) ([]model.Seat, error) {
    _, seats, occ, err := i.load(ctx, venueID, scheduleID)
    if err != nil {
        return nil, err
    }
    out := make([]model.Seat, 0, len(seats))
    for _, s := range seats {
        if occ.State(s.ID) == model.SeatAvailable {
            out = append(out, s)
        }
    }
    return out, nil
}

// SeatCell is one seat of the seat picker.
type SeatCell struct {
    ID         uint64             `json:"id"`
    Label      string             `json:"label"`
    SeatNumber uint32             `json:"seat_number"`
    Category   model.SeatCategory `json:"category"`
    PriceCents uint32             `json:"price_cents"`
    Status     model.SeatState    `json:"status"`
}

// SeatRow groups the cells of one row.
type SeatRow struct {
    Row   string     `json:"row"`
    Seats []SeatCell `json:"seats"`
}

// SeatMap is the seat picker view of a schedule.
type SeatMap struct {
    VenueID        uint64                  `json:"venue_id"`
    ScheduleID     uint64                  `json:"schedule_id"`
    TotalSeats     uint32                  `json:"total_seats"`
    SeatsAvailable uint32                  `json:"seats_available"`
    Counts         map[model.SeatState]int `json:"counts"`
    Rows           []SeatRow               `json:"rows"`
}

// SeatMap returns the seats of the schedule grouped by row, each annotated
// AVAILABLE, RESERVED or SOLD.
func (i *Inventory) SeatMap(ctx context.Context, venueID, scheduleID uint64) (SeatMap, error) {
    sched, seats, occ, err := i.load(ctx, venueID, scheduleID)
    if err != nil {
        return SeatMap{}, err
    }
    m := SeatMap{
        VenueID:        venueID,
        ScheduleID:     scheduleID,
        TotalSeats:     sched.TotalSeats,
        SeatsAvailable: sched.SeatsAvailable,
        Counts: map[model.SeatState]int{
            model.SeatAvailable: 0,
            model.SeatReserved:  0,
            model.SeatSold:      0,
        },
        Rows: []SeatRow{},
    }
    for _, s := range seats {
        state := occ.State(s.ID)
        m.Counts[state]++
        cell := SeatCell{
            ID:         s.ID,
            Label:      s.Label(),
            SeatNumber: s.SeatNumber,
            Category:   s.Category,
            PriceCents: seatPrice(sched.BasePriceCents, s.PriceMultiplier),
            Status:     state,
        }
        if n := len(m.Rows); n > 0 && m.Rows[n-1].Row == s.RowLabel {
            m.Rows[n-1].Seats = append(m.Rows[n-1].Seats, cell)
            continue
        }
        m.Rows = append(m.Rows, SeatRow{Row: s.RowLabel, Seats: []SeatCell{cell}})
    }
    return m, nil
}

// LayoutRow is one row of a venue layout.
type LayoutRow struct {
    Row   string       `json:"row"`
    Seats []model.Seat `json:"seats"`
}

// VenueLayout is the static seat layout of a venue.
type VenueLayout struct {
    Venue model.Venue `json:"venue"`
    Seats int         `json:"seat_count"`
    Rows  []LayoutRow `json:"rows"`
}

// VenueLayout returns the seats of a venue grouped by row.  It carries no
// availability and is safe to cache.
func (i *Inventory) VenueLayout(ctx context.Context, venueID uint64) (VenueLayout, error) {
    v, err := i.store.GetVenue(ctx, venueID)
    if err != nil {
        return VenueLayout{}, translate(err, "venue", venueID)
    }
    seats, err := i.store.ListVenueSeats(ctx, venueID)
    if err != nil {
        return VenueLayout{}, err
    }
    sortSeats(seats)
    out := VenueLayout{Venue: v, Seats: len(seats), Rows: []LayoutRow{}}
    for _, s := range seats {
        if n := len(out.Rows); n > 0 && out.Rows[n-1].Row == s.RowLabel {
            out.Rows[n-1].Seats = append(out.Rows[n-1].Seats, s)
            continue
        }
        out.Rows = append(out.Rows, LayoutRow{Row: s.RowLabel, Seats: []model.Seat{s}})
    }
    return out, nil
}

// SetPriceMultiplier changes the price multiplier of a seat.  Admin only.
func (i *Inventory) SetPriceMultiplier(ctx context.Context, actor Actor, seatID uint64, multiplier float64) error {
    if err := i.policy.RequireAdmin(actor); err != nil {
        return err
    }
    if math.IsNaN(multiplier) || multiplier <= 0 || multiplier > 10 {
        return invalid("price multiplier must be in (0, 10]")
    }
    return translate(i.store.UpdateSeatPriceMultiplier(ctx, seatID, multiplier), "seat", seatID)
}

// load resolves venue, schedule, seats and occupancy for the read views.  A
// schedule of another venue is reported as not found.
func (i *Inventory) load(ctx context.Context, venueID, scheduleID uint64) (model.ShowSchedule, []model.Seat, model.Occupancy, error) {
    if _, err := i.store.GetVenue(ctx, venueID); err != nil {
        return model.ShowSchedule{}, nil, model.Occupancy{}, translate(err, "venue", venueID)
    }
    sched, err := i.store.GetSchedule(ctx, scheduleID)
    if err != nil {
        return model.ShowSchedule{}, nil, model.Occupancy{}, translate(err, "schedule", scheduleID)
    }
    if sched.VenueID != venueID {
        return model.ShowSchedule{}, nil, model.Occupancy{}, notFound("schedule", scheduleID)
    }
    seats, err := i.store.ListVenueSeats(ctx, venueID)
    if err != nil {
        return model.ShowSchedule{}, nil, model.Occupancy{}, err
    }
    sortSeats(seats)
    occ, err := i.store.LoadOccupancy(ctx, scheduleID, i.now())
    if err != nil {
        return model.ShowSchedule{}, nil, model.Occupancy{}, err
    }
    return sched, seats, occ, nil
}

// translate maps repository sentinels to service errors.
func translate(err error, entity string, id any) error {
    if err == nil {
        return nil
    }
    if errors.Is(err, repository.ErrNotFound) {
        return notFound(entity, id)
    }
    return err
}

func indexSeats(seats []model.Seat) map[uint64]model.Seat {
    idx := make(map[uint64]model.Seat, len(seats))
    for _, s := range seats {
        idx[s.ID] = s
    }
    return idx
}

func sortSeats(seats []model.Seat) {
    sort.SliceStable(seats, func(a, b int) bool {
        if seats[a].RowLabel != seats[b].RowLabel {
            return seats[a].RowLabel < seats[b].RowLabel
        }
        return seats[a].SeatNumber < seats[b].SeatNumber
    })
}

// seatPrice is round(base x multiplier) in cents.
func seatPrice(base uint32, multiplier float64) uint32 {
    return uint32(math.Round(float64(base) * multiplier))
}

// dedupeIDs drops zeros and repeats, keeping first-seen order.
func dedupeIDs(ids []uint64) []uint64 {
    seen := make(map[uint64]struct{}, len(ids))
    out := make([]uint64, 0, len(ids))
    for _, id := range ids {
        if id == 0 {
            continue
        }
        if _, ok := seen[id]; ok {
            continue
        }
        seen[id] = struct{}{}
        out = append(out, id)
    }
    return out
}

// seatConflict builds the user-facing conflict for a lost race, suggesting
// up to alternativesLimit free seats of the same schedule.
func (s settings) seatConflict(ctx context.Context, store Store, taken *repository.SeatTakenError, scheduleID uint64, seats map[uint64]model.Seat) *ConflictError {
    ce := &ConflictError{SeatIDs: taken.SeatIDs, Alternatives: []model.Seat{}}
    for _, id := range taken.SeatIDs {
        if seat, ok := seats[id]; ok {
            ce.Labels = append(ce.Labels, seat.Label())
        }
    }
    occ, err := store.LoadOccupancy(ctx, scheduleID, s.now())
    if err != nil {
        s.log.Warn("load alternatives", zap.Uint64("schedule_id", scheduleID), zap.Error(err))
        return ce
    }
    all := make([]model.Seat, 0, len(seats))
    for _, seat := range seats {
        all = append(all, seat)
    }
    sortSeats(all)
    for _, seat := range all {
        if len(ce.Alternatives) == alternativesLimit {
            break
        }
        if occ.State(seat.ID) == model.SeatAvailable {
            ce.Alternatives = append(ce.Alternatives, seat)
        }
    }
    return ce
}
