package model

// SeatState is the availability of one seat for one schedule.
type SeatState string

const (
    SeatAvailable SeatState = "AVAILABLE"
    SeatReserved  SeatState = "RESERVED"
    SeatSold      SeatState = "SOLD"
)

// Occupancy is a point-in-time view of which seats of a schedule are taken.
// Booked holds seats of bookings that occupy them; Held holds non-expired
// reservations keyed by seat id.
type Occupancy struct {
    Booked map[uint64]struct{}
    Held   map[uint64]SeatReservation
}

// NewOccupancy returns an empty occupancy.
func NewOccupancy() Occupancy {
    return Occupancy{Booked: map[uint64]struct{}{}, Held: map[uint64]SeatReservation{}}
}

// State reports the state of a seat.  Sold wins over reserved.
func (o Occupancy) State(seatID uint64) SeatState {
    if _, ok := o.Booked[seatID]; ok {
        return SeatSold
    }
    if _, ok := o.Held[seatID]; ok {
        return SeatReserved
    }
    return SeatAvailable
}

// ScheduleSnapshot is the ground truth read by the reconciler inside its
// transaction.
type ScheduleSnapshot struct {
    Schedule      ShowSchedule
    VenueCapacity uint32 // venues.capacity
    PhysicalSeats uint32 // count of seat rows of the venue
    ActiveBooked  uint32 // seat bookings of occupying bookings
    ActiveHeld    uint32 // non-expired holds
}

// ScheduleCounts are the values the reconciler writes back.
type ScheduleCounts struct {
    TotalSeats     uint32 `json:"total_seats"`
    SeatsAvailable uint32 `json:"seats_available"`
}
