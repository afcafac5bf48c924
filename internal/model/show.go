package model

import "time"

// Show is the thing being performed or screened.  Category drives the
// booking window rule and CreatedBy is the organizer allowed to manage it.
//
// Fields:
//  ID             - primary key identifier.
//  Title          - display title.
//  Category       - MOVIE, CONCERT, THEATRE and so on.
//  BasePriceCents - price of a seat with multiplier 1.
//  CreatedBy      - user id of the organizer that created the show.
type Show struct {
    ID             uint64 // shows.id
    Title          string // shows.title
    Category       string // shows.category
    BasePriceCents uint32 // shows.base_price_cents
    CreatedBy      uint64 // shows.created_by
}

// ShowSchedule is one performance of a show in a venue.  TotalSeats is a
// snapshot of the venue size and SeatsAvailable a cached counter derived
// from the active bookings.  Invariant: 0 <= SeatsAvailable <= TotalSeats.
//
// The show columns (category, base price, creator) are joined in when the
// schedule is loaded so callers never need a second query.
type ShowSchedule struct {
    ID             uint64    `json:"id"`              // show_schedules.id
    ShowID         uint64    `json:"show_id"`         // show_schedules.show_id
    VenueID        uint64    `json:"venue_id"`        // show_schedules.venue_id
    StartsAt       time.Time `json:"starts_at"`       // show_schedules.starts_at
    TotalSeats     uint32    `json:"total_seats"`     // show_schedules.total_seats
    SeatsAvailable uint32    `json:"seats_available"` // show_schedules.seats_available
    ShowCategory   string    `json:"show_category"`   // shows.category
    BasePriceCents uint32    `json:"base_price_cents"` // shows.base_price_cents
    CreatedBy      uint64    `json:"created_by"`      // shows.created_by
}
