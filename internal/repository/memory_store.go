package repository

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/seat-inventory/internal/model"
)

// MemoryStore keeps the inventory in process memory behind one mutex.  It
// enforces the same keys as the MySQL schema: one hold per (schedule, seat)
// and one occupying seat booking per (schedule, seat).  It backs the
// service tests and local runs without a database.
type MemoryStore struct {
    mu        sync.Mutex
    nextID    uint64
    venues    map[uint64]model.Venue
    seats     map[uint64]model.Seat
    shows     map[uint64]model.Show
    schedules map[uint64]model.ShowSchedule
    holds     map[seatKey]model.SeatReservation
    bookings  map[uint64]model.Booking
    occupied  map[seatKey]uint64 // (schedule, seat) -> booking id
}

type seatKey struct {
    scheduleID uint64
    seatID     uint64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
    return &MemoryStore{
        venues:    map[uint64]model.Venue{},
        seats:     map[uint64]model.Seat{},
        shows:     map[uint64]model.Show{},
        schedules: map[uint64]model.ShowSchedule{},
        holds:     map[seatKey]model.SeatReservation{},
        bookings:  map[uint64]model.Booking{},
        occupied:  map[seatKey]uint64{},
    }
}

func (m *MemoryStore) id() uint64 {
    m.nextID++
    return m.nextID
}

// AddVenue stores v, assigning an id when v.ID is zero.
func (m *MemoryStore) AddVenue(v model.Venue) model.Venue {
    m.mu.Lock()
    defer m.mu.Unlock()
    if v.ID == 0 {
        v.ID = m.id()
    }
    m.venues[v.ID] = v
    return v
}

// AddSeat stores s, assigning an id when s.ID is zero.
func (m *MemoryStore) AddSeat(s model.Seat) model.Seat {
    m.mu.Lock()
    defer m.mu.Unlock()
    if s.ID == 0 {
        s.ID = m.id()
    }
    if s.Category == "" {
        s.Category = model.SeatStandard
    }
    if s.PriceMultiplier == 0 {
        s.PriceMultiplier = 1
    }
    m.seats[s.ID] = s
    return s
}

// AddShow stores sh, assigning an id when sh.ID is zero.
func (m *MemoryStore) AddShow(sh model.Show) model.Show {
    m.mu.Lock()
    defer m.mu.Unlock()
    if sh.ID == 0 {
        sh.ID = m.id()
    }
    m.shows[sh.ID] = sh
    return sh
}

// AddSchedule stores s and copies the show columns into it the way the
// MySQL join does.
func (m *MemoryStore) AddSchedule(s model.ShowSchedule) model.ShowSchedule {
    m.mu.Lock()
    defer m.mu.Unlock()
    if s.ID == 0 {
        s.ID = m.id()
    }
    if sh, ok := m.shows[s.ShowID]; ok {
        s.ShowCategory = sh.Category
        s.BasePriceCents = sh.BasePriceCents
        s.CreatedBy = sh.CreatedBy
    }
    s.StartsAt = s.StartsAt.UTC()
    m.schedules[s.ID] = s
    return s
}

// SetScheduleCounts overwrites the counters of a schedule, bypassing every
// rule.  It stands in for a manual database edit.
func (m *MemoryStore) SetScheduleCounts(id uint64, c model.ScheduleCounts) {
    m.mu.Lock()
    defer m.mu.Unlock()
    s := m.schedules[id]
    s.TotalSeats, s.SeatsAvailable = c.TotalSeats, c.SeatsAvailable
    m.schedules[id] = s
}

// ActiveHoldCount counts holds of a schedule that have not expired at now.
func (m *MemoryStore) ActiveHoldCount(scheduleID uint64, now time.Time) int {
    m.mu.Lock()
    defer m.mu.Unlock()
    n := 0
    for k, h := range m.holds {
        if k.scheduleID == scheduleID && !h.Expired(now) {
            n++
        }
    }
    return n
}

// OccupiedCount counts seats of a schedule held by occupying bookings.
func (m *MemoryStore) OccupiedCount(scheduleID uint64) int {
    m.mu.Lock()
    defer m.mu.Unlock()
    n := 0
    for k := range m.occupied {
        if k.scheduleID == scheduleID {
            n++
        }
    }
    return n
}

func (m *MemoryStore) GetVenue(_ context.Context, id uint64) (model.Venue, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    v, ok := m.venues[id]
    if !ok {
        return model.Venue{}, ErrNotFound
    }
    return v, nil
}

func (m *MemoryStore) ListVenueSeats(_ context.Context, venueID uint64) ([]model.Seat, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.venueSeats(venueID), nil
}

func (m *MemoryStore) venueSeats(venueID uint64) []model.Seat {
    out := make([]model.Seat, 0)
    for _, s := range m.seats {
        if s.VenueID == venueID {
            out = append(out, s)
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].RowLabel != out[j].RowLabel {
            return out[i].RowLabel < out[j].RowLabel
        }
        return out[i].SeatNumber < out[j].SeatNumber
    })
    return out
}

func (m *MemoryStore) UpdateSeatPriceMultiplier(_ context.Context, seatID uint64, multiplier float64) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    s, ok := m.seats[seatID]
    if !ok {
        return ErrNotFound
    }
    s.PriceMultiplier = multiplier
    m.seats[seatID] = s
    return nil
}

func (m *MemoryStore) GetSchedule(_ context.Context, id uint64) (model.ShowSchedule, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    s, ok := m.schedules[id]
    if !ok {
        return model.ShowSchedule{}, ErrNotFound
    }
    return s, nil
}

func (m *MemoryStore) ListScheduleIDs(_ context.Context, venueID uint64) ([]uint64, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    ids := []uint64{}
    for id, s := range m.schedules {
        if venueID == 0 || s.VenueID == venueID {
            ids = append(ids, id)
        }
    }
    sortIDs(ids)
    return ids, nil
}

func (m *MemoryStore) LoadOccupancy(_ context.Context, scheduleID uint64, now time.Time) (model.Occupancy, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    occ := model.NewOccupancy()
    for k := range m.occupied {
        if k.scheduleID == scheduleID {
            occ.Booked[k.seatID] = struct{}{}
        }
    }
    for k, h := range m.holds {
        if k.scheduleID == scheduleID && !h.Expired(now) {
            occ.Held[k.seatID] = h
        }
    }
    return occ, nil
}

func (m *MemoryStore) ListHoldsBySession(_ context.Context, sessionID string) ([]model.SeatReservation, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    out := make([]model.SeatReservation, 0)
    for _, h := range m.holds {
        if h.SessionID == sessionID {
            out = append(out, h)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].SeatID < out[j].SeatID })
    return out, nil
}

// CreateHolds claims every seat or none.  Lapsed holds and holds of the
// same session are replaced; anything else on the key, or an occupying
// booking, makes the batch fail with *SeatTakenError.
func (m *MemoryStore) CreateHolds(_ context.Context, holds []model.SeatReservation, now time.Time) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    var taken []uint64
    for _, h := range holds {
        k := seatKey{h.ScheduleID, h.SeatID}
        if _, ok := m.occupied[k]; ok {
            taken = append(taken, h.SeatID)
            continue
        }
        if cur, ok := m.holds[k]; ok && !cur.Expired(now) && cur.SessionID != h.SessionID {
            taken = append(taken, h.SeatID)
        }
    }
    if len(taken) > 0 {
        sortIDs(taken)
        return &SeatTakenError{SeatIDs: taken}
    }
    for _, h := range holds {
        h.ID = m.id()
        m.holds[seatKey{h.ScheduleID, h.SeatID}] = h
    }
    return nil
}

func (m *MemoryStore) DeleteHoldsBySession(_ context.Context, sessionID string) (int64, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.deleteHolds(func(h model.SeatReservation) bool { return h.SessionID == sessionID }), nil
}

func (m *MemoryStore) DeleteExpiredHolds(_ context.Context, now time.Time) (int64, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.deleteHolds(func(h model.SeatReservation) bool { return h.Expired(now) }), nil
}

func (m *MemoryStore) deleteHolds(match func(model.SeatReservation) bool) int64 {
    var n int64
    for k, h := range m.holds {
        if match(h) {
            delete(m.holds, k)
            n++
        }
    }
    return n
}

func (m *MemoryStore) CreateBooking(_ context.Context, b *model.Booking, now time.Time) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    sched, ok := m.schedules[b.ScheduleID]
    if !ok {
        return ErrNotFound
    }
    sessionID := ""
    if b.SessionID != nil {
        sessionID = *b.SessionID
    }
    var taken []uint64
    for _, s := range b.Seats {
        k := seatKey{b.ScheduleID, s.SeatID}
        if _, ok := m.occupied[k]; ok {
            taken = append(taken, s.SeatID)
            continue
        }
        h, ok := m.holds[k]
        if ok && !h.Expired(now) && h.SessionID != sessionID && h.UserID != b.UserID {
            taken = append(taken, s.SeatID)
        }
    }
    if len(taken) > 0 {
        sortIDs(taken)
        return &SeatTakenError{SeatIDs: taken}
    }
    if sessionID != "" {
        m.deleteHolds(func(h model.SeatReservation) bool {
            return h.SessionID == sessionID && h.ScheduleID == b.ScheduleID
        })
    }
    b.ID = m.id()
    for i := range b.Seats {
        k := seatKey{b.ScheduleID, b.Seats[i].SeatID}
        delete(m.holds, k)
        m.occupied[k] = b.ID
        b.Seats[i].ID = m.id()
        b.Seats[i].BookingID = b.ID
        b.Seats[i].ScheduleID = b.ScheduleID
        if seat, ok := m.seats[b.Seats[i].SeatID]; ok {
            b.Seats[i].RowLabel = seat.RowLabel
            b.Seats[i].SeatNumber = seat.SeatNumber
        }
    }
    n := uint32(len(b.Seats))
    if sched.SeatsAvailable >= n {
        sched.SeatsAvailable -= n
    } else {
        sched.SeatsAvailable = 0
    }
    m.schedules[b.ScheduleID] = sched
    m.bookings[b.ID] = copyBooking(*b)
    return nil
}

func (m *MemoryStore) GetBooking(_ context.Context, id uint64) (model.Booking, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    b, ok := m.bookings[id]
    if !ok {
        return model.Booking{}, ErrNotFound
    }
    return copyBooking(b), nil
}

func (m *MemoryStore) TransitionBooking(_ context.Context, id uint64, to model.BookingStatus, paymentRef *string, now time.Time) (model.Booking, bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    b, ok := m.bookings[id]
    if !ok {
        return model.Booking{}, false, ErrNotFound
    }
    effect, err := model.PlanTransition(b.Status, to)
    if err != nil {
        return model.Booking{}, false, err
    }
    if effect == model.NoChange {
        return copyBooking(b), false, nil
    }
    b.Status = to
    b.UpdatedAt = now
    if paymentRef != nil {
        ref := *paymentRef
        b.PaymentRef = &ref
    }
    if effect == model.Release {
        released := uint32(0)
        for _, s := range b.Seats {
            k := seatKey{b.ScheduleID, s.SeatID}
            if m.occupied[k] == b.ID {
                delete(m.occupied, k)
                released++
            }
        }
        sched := m.schedules[b.ScheduleID]
        sched.SeatsAvailable += released
        if sched.SeatsAvailable > sched.TotalSeats {
            sched.SeatsAvailable = sched.TotalSeats
        }
        m.schedules[b.ScheduleID] = sched
    }
    m.bookings[id] = b
    return copyBooking(b), true, nil
}

func (m *MemoryStore) ListStalePendingBookings(_ context.Context, cutoff time.Time, limit int) ([]uint64, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var stale []model.Booking
    for _, b := range m.bookings {
        if b.Status == model.BookingPending && b.CreatedAt.Before(cutoff) {
            stale = append(stale, b)
        }
    }
    sort.Slice(stale, func(i, j int) bool { return stale[i].CreatedAt.Before(stale[j].CreatedAt) })
    ids := []uint64{}
    for _, b := range stale {
        if limit > 0 && len(ids) == limit {
            break
        }
        ids = append(ids, b.ID)
    }
    return ids, nil
}

func (m *MemoryStore) ReconcileSchedule(_ context.Context, id uint64, now time.Time, fn func(model.ScheduleSnapshot) model.ScheduleCounts) (model.ScheduleSnapshot, model.ScheduleCounts, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    sched, ok := m.schedules[id]
    if !ok {
        return model.ScheduleSnapshot{}, model.ScheduleCounts{}, ErrNotFound
    }
    snap := model.ScheduleSnapshot{
        Schedule:      sched,
        VenueCapacity: m.venues[sched.VenueID].Capacity,
        PhysicalSeats: uint32(len(m.venueSeats(sched.VenueID))),
    }
    for _, b := range m.bookings {
        if b.ScheduleID == id && b.Status.Occupies() {
            snap.ActiveBooked += uint32(len(b.Seats))
        }
    }
    for k, h := range m.holds {
        if k.scheduleID == id && !h.Expired(now) {
            snap.ActiveHeld++
        }
    }
    counts := fn(snap)
    sched.TotalSeats, sched.SeatsAvailable = counts.TotalSeats, counts.SeatsAvailable
    m.schedules[id] = sched
    return snap, counts, nil
}

func copyBooking(b model.Booking) model.Booking {
    b.Seats = append([]model.SeatBooking(nil), b.Seats...)
    if b.Seats == nil {
        b.Seats = []model.SeatBooking{}
    }
    return b
}
