package model

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestPlanTransition(t *testing.T) {
    cases := []struct {
        from, to BookingStatus
        effect   TransitionEffect
        err      error
    }{
        {BookingPending, BookingConfirmed, StatusOnly, nil},
        {BookingConfirmed, BookingPending, NoChange, ErrInvalidTransition},
        {BookingPending, BookingCancelled, Release, nil},
        {BookingConfirmed, BookingCancelled, Release, nil},
        {BookingConfirmed, BookingRefunded, Release, nil},
        {BookingPending, BookingExpired, Release, nil},
        {BookingCancelled, BookingCancelled, NoChange, nil},
        {BookingCancelled, BookingRefunded, NoChange, nil},
        {BookingExpired, BookingCancelled, NoChange, nil},
        {BookingCancelled, BookingConfirmed, NoChange, ErrInvalidTransition},
        {BookingRefunded, BookingPending, NoChange, ErrInvalidTransition},
        {BookingConfirmed, BookingStatus("PAID"), NoChange, ErrInvalidTransition},
    }
    for _, tc := range cases {
        t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
            effect, err := PlanTransition(tc.from, tc.to)
            assert.Equal(t, tc.effect, effect)
            assert.ErrorIs(t, err, tc.err)
        })
    }
}

func TestOccupancyState(t *testing.T) {
    o := NewOccupancy()
    o.Booked[1] = struct{}{}
    o.Held[1] = SeatReservation{SeatID: 1}
    o.Held[2] = SeatReservation{SeatID: 2}

    assert.Equal(t, SeatSold, o.State(1))
    assert.Equal(t, SeatReserved, o.State(2))
    assert.Equal(t, SeatAvailable, o.State(3))
}

func TestReservationExpiredAtBoundary(t *testing.T) {
    exp := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
    r := SeatReservation{ExpiresAt: exp}
    assert.False(t, r.Expired(exp.Add(-time.Second)))
    assert.False(t, r.Expired(exp))
    assert.True(t, r.Expired(exp.Add(time.Millisecond)))
}

func TestSeatLabelAndCategory(t *testing.T) {
    s := Seat{RowLabel: "A", SeatNumber: 12, Category: SeatVIP}
    assert.Equal(t, "A12", s.Label())
    assert.True(t, s.Category.Valid())
    assert.False(t, SeatCategory("BALCONY").Valid())
}
