package model

// Venue is a physical location with a declared capacity.  The capacity is
// expected to equal the number of Seat rows of the venue; when a venue has
// no modeled seats the capacity alone describes it.
//
// Fields:
//  ID       - primary key identifier.
//  Name     - display name.
//  Capacity - declared number of places.
type Venue struct {
    ID       uint64 `json:"id"`       // venues.id
    Name     string `json:"name"`     // venues.name
    Capacity uint32 `json:"capacity"` // venues.capacity
}
