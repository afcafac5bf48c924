package model

import "fmt"

// SeatCategory classifies a seat for pricing.
type SeatCategory string

const (
    SeatStandard SeatCategory = "STANDARD"
    SeatPremium  SeatCategory = "PREMIUM"
    SeatVIP      SeatCategory = "VIP"
)

// Valid reports whether c is one of the known categories.
func (c SeatCategory) Valid() bool {
    switch c {
    case SeatStandard, SeatPremium, SeatVIP:
        return true
    }
    return false
}

// Seat describes a physical seat in a venue.  Seats are uniquely identified
// by their venue, row label and seat number.  Only the price multiplier may
// change after creation.
//
// Fields:
//  ID              - primary key identifier.
//  VenueID         - venue to which this seat belongs.
//  RowLabel        - letter or string designating the row.
//  SeatNumber      - number of the seat within the row.
//  Category        - STANDARD, PREMIUM or VIP.
//  PriceMultiplier - factor applied to the show's base price.
type Seat struct {
    ID              uint64       `json:"id"`               // seats.id
    VenueID         uint64       `json:"venue_id"`         // seats.venue_id
    RowLabel        string       `json:"row_label"`        // seats.row_label
    SeatNumber      uint32       `json:"seat_number"`      // seats.seat_number
    Category        SeatCategory `json:"category"`         // seats.category
    PriceMultiplier float64      `json:"price_multiplier"` // seats.price_multiplier
}

// Label renders the seat position as shown to customers, e.g. "A1".
func (s Seat) Label() string { return fmt.Sprintf("%s%d", s.RowLabel, s.SeatNumber) }
