package model

import "time"

// SeatReservation represents a temporary hold on a seat for one schedule
// while a user is in the process of purchasing.  At most one hold exists
// per (schedule, seat).  Holds belong to no aggregate: they are removed on
// explicit release, on commit, or by the expiry sweep.
//
// Fields:
//  ID         - primary key identifier.
//  ScheduleID - schedule for which the seat is held.
//  SeatID     - seat being held.
//  UserID     - user who holds the seat.
//  SessionID  - checkout session grouping the holds of one request.
//  CreatedAt  - when the hold was created.
//  ExpiresAt  - when the hold lapses.
type SeatReservation struct {
    ID         uint64    `json:"id"`          // seat_holds.id
    ScheduleID uint64    `json:"schedule_id"` // seat_holds.schedule_id
    SeatID     uint64    `json:"seat_id"`     // seat_holds.seat_id
    UserID     uint64    `json:"user_id"`     // seat_holds.user_id
    SessionID  string    `json:"session_id"`  // seat_holds.session_id
    CreatedAt  time.Time `json:"created_at"`  // seat_holds.created_at
    ExpiresAt  time.Time `json:"expires_at"`  // seat_holds.expires_at
}

// Expired reports whether the hold has lapsed at now.  A hold is still
// active at exactly its expiry instant.
func (r SeatReservation) Expired(now time.Time) bool { return now.After(r.ExpiresAt) }
