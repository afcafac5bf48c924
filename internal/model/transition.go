package model

import "errors"

// ErrInvalidTransition is returned when a booking cannot move from its
// current status to the requested one.
var ErrInvalidTransition = errors.New("invalid booking status transition")

// TransitionEffect tells the store what a status change does to inventory.
type TransitionEffect int

const (
    // NoChange: the booking is already in the target status, or both
    // statuses release seats.  Nothing is written.
    NoChange TransitionEffect = iota
    // StatusOnly: the status changes but seats stay occupied.
    StatusOnly
    // Release: the seats are freed and the schedule counter goes up.
    Release
)

// PlanTransition decides the effect of moving a booking from one status to
// another.  It is the only place that encodes the status rules; the stores
// call it while holding the booking row lock.
func PlanTransition(from, to BookingStatus) (TransitionEffect, error) {
    if !from.Valid() || !to.Valid() {
        return NoChange, ErrInvalidTransition
    }
    if from == to {
        return NoChange, nil
    }
    switch {
    case from.Occupies() && to.Occupies():
        if from == BookingPending && to == BookingConfirmed {
            return StatusOnly, nil
        }
        return NoChange, ErrInvalidTransition
    case from.Occupies() && !to.Occupies():
        return Release, nil
    case !from.Occupies() && !to.Occupies():
        return NoChange, nil
    default:
        return NoChange, ErrInvalidTransition
    }
}
