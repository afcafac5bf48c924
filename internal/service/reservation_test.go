package service

import (
    "context"
    "errors"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/google/uuid"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/seat-inventory/internal/model"
)

func TestReserveCommitCancelScenario(t *testing.T) {
    f := newFixture(t, 10)
    ctx := context.Background()

    s1, err := f.res.Reserve(ctx, alice, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: f.ids("A1", "A2"), TTL: 10 * time.Minute})
    require.NoError(t, err)
    require.Len(t, s1.Holds, 2)
    assert.Equal(t, testNow.Add(10*time.Minute), s1.ExpiresAt)
    _, err = uuid.Parse(s1.SessionID)
    require.NoError(t, err)

    _, err = f.res.Reserve(ctx, bob, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: f.ids("A1")})
    var conflict *ConflictError
    require.ErrorAs(t, err, &conflict)
    assert.ErrorIs(t, err, ErrSeatUnavailable)
    assert.Equal(t, f.ids("A1"), conflict.SeatIDs)
    assert.Equal(t, []string{"A1"}, conflict.Labels)
    require.NotEmpty(t, conflict.Alternatives)
    for _, alt := range conflict.Alternatives {
        assert.NotContains(t, []string{"A1", "A2"}, alt.Label())
    }
    assert.Equal(t, 2, f.store.ActiveHoldCount(f.sched.ID, testNow))

    b, err := f.book.Commit(ctx, alice, CommitRequest{ScheduleID: f.sched.ID, SessionID: s1.SessionID})
    require.NoError(t, err)
    assert.Equal(t, model.BookingPending, b.Status)
    assert.ElementsMatch(t, f.ids("A1", "A2"), b.SeatIDs())
    assert.Equal(t, uint32(98), f.schedule(t).SeatsAvailable)
    holds, err := f.store.ListHoldsBySession(ctx, s1.SessionID)
    require.NoError(t, err)
    assert.Empty(t, holds)

    cancelled, err := f.book.Cancel(ctx, alice, b.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingCancelled, cancelled.Status)
    assert.Equal(t, uint32(100), f.schedule(t).SeatsAvailable)

    _, err = f.book.Cancel(ctx, alice, b.ID)
    require.NoError(t, err)
    assert.Equal(t, uint32(100), f.schedule(t).SeatsAvailable)
    assert.Equal(t, []string{"booking.created", "booking.released"}, f.pub.keys())
}

func TestConcurrentReserveExactlyOneWins(t *testing.T) {
    for round := 0; round < 25; round++ {
        f := newFixture(t, 1)
        ctx := context.Background()
        requests := []struct {
            actor Actor
            seats []uint64
        }{
            {alice, f.ids("A1", "A2", "A3")},
            {bob, f.ids("A3", "A4")},
        }

        start := make(chan struct{})
        errs := make([]error, len(requests))
        var wg sync.WaitGroup
        for i, r := range requests {
            wg.Add(1)
            go func(i int, actor Actor, seats []uint64) {
                defer wg.Done()
                <-start
                _, errs[i] = f.res.Reserve(ctx, actor, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: seats})
            }(i, r.actor, r.seats)
        }
        close(start)
        wg.Wait()

        winners := 0
        winnerSeats := 0
        for i, err := range errs {
            if err == nil {
                winners++
                winnerSeats = len(requests[i].seats)
                continue
            }
            var conflict *ConflictError
            require.ErrorAs(t, err, &conflict)
            assert.Equal(t, f.ids("A3"), conflict.SeatIDs)
        }
        require.Equal(t, 1, winners, "round %d", round)
        assert.Equal(t, winnerSeats, f.store.ActiveHoldCount(f.sched.ID, testNow), "loser left partial holds")
    }
}

func TestReserveValidation(t *testing.T) {
    f := newFixture(t, 2)
    ctx := context.Background()
    other := f.store.AddVenue(model.Venue{Name: "Annex", Capacity: 1})
    foreign := f.store.AddSeat(model.Seat{VenueID: other.ID, RowLabel: "Z", SeatNumber: 1})

    owned, err := f.res.Reserve(ctx, alice, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: f.ids("B1")})
    require.NoError(t, err)

    eleven := f.ids("A1", "A2", "A3", "A4", "A5", "A6", "A7", "A8", "A9", "A10", "B2")
    cases := []struct {
        name  string
        actor Actor
        req   ReserveRequest
        want  error
    }{
        {"anonymous", Actor{}, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: f.ids("A1")}, ErrForbidden},
        {"empty", alice, ReserveRequest{ScheduleID: f.sched.ID}, ErrInvalidInput},
        {"zero ids only", alice, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: []uint64{0, 0}}, ErrInvalidInput},
        {"too many", alice, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: eleven}, ErrInvalidInput},
        {"ttl too long", alice, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: f.ids("A1"), TTL: 31 * time.Minute}, ErrInvalidInput},
        {"ttl too short", alice, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: f.ids("A1"), TTL: 30 * time.Second}, ErrInvalidInput},
        {"unknown schedule", alice, ReserveRequest{ScheduleID: 999999, SeatIDs: f.ids("A1")}, ErrNotFound},
        {"seat of another venue", alice, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: []uint64{foreign.ID}}, ErrNotFound},
        {"malformed session", alice, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: f.ids("A1"), SessionID: "s1"}, ErrInvalidInput},
        {"session of another user", bob, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: f.ids("A1"), SessionID: owned.SessionID}, ErrForbidden},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            _, err := f.res.Reserve(ctx, tc.actor, tc.req)
            assert.ErrorIs(t, err, tc.want)
        })
    }
    assert.Equal(t, 1, f.store.ActiveHoldCount(f.sched.ID, testNow))
}

func TestReserveDeduplicatesAndRefreshesSameSession(t *testing.T) {
    f := newFixture(t, 1)
    ctx := context.Background()

    first, err := f.res.Reserve(ctx, alice, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: f.ids("A1", "A1", "A2"), TTL: 5 * time.Minute})
    require.NoError(t, err)
    require.Len(t, first.Holds, 2)

    f.clock.Advance(2 * time.Minute)
    again, err := f.res.Reserve(ctx, alice, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: f.ids("A1"), SessionID: first.SessionID})
    require.NoError(t, err)
    assert.Equal(t, first.SessionID, again.SessionID)
    assert.Equal(t, testNow.Add(12*time.Minute), again.ExpiresAt)

    holds, err := f.store.ListHoldsBySession(ctx, first.SessionID)
    require.NoError(t, err)
    require.Len(t, holds, 2)
    for _, h := range holds {
        if h.SeatID == f.seats["A1"].ID {
            assert.Equal(t, again.ExpiresAt, h.ExpiresAt)
        } else {
            assert.Equal(t, first.ExpiresAt, h.ExpiresAt)
        }
    }
}

func TestSweepExpired(t *testing.T) {
    f := newFixture(t, 1)
    ctx := context.Background()
    seat := f.seats["A1"]

    _, err := f.res.Reserve(ctx, alice, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: []uint64{seat.ID}, TTL: 10 * time.Minute})
    require.NoError(t, err)

    f.clock.Advance(5 * time.Minute)
    n, err := f.res.SweepExpired(ctx)
    require.NoError(t, err)
    assert.Zero(t, n)
    free, err := f.inv.IsAvailable(ctx, seat.ID, f.sched.ID)
    require.NoError(t, err)
    assert.False(t, free)

    f.clock.Advance(5*time.Minute + time.Second)
    n, err = f.res.SweepExpired(ctx)
    require.NoError(t, err)
    assert.Equal(t, int64(1), n)
    free, err = f.inv.IsAvailable(ctx, seat.ID, f.sched.ID)
    require.NoError(t, err)
    assert.True(t, free)

    _, err = f.res.Reserve(ctx, bob, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: []uint64{seat.ID}})
    require.NoError(t, err)
}

func TestExpiredHoldDoesNotBlockBeforeSweep(t *testing.T) {
    f := newFixture(t, 1)
    ctx := context.Background()

    _, err := f.res.Reserve(ctx, alice, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: f.ids("A1"), TTL: time.Minute})
    require.NoError(t, err)
    f.clock.Advance(time.Minute + time.Second)

    _, err = f.res.Reserve(ctx, bob, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: f.ids("A1")})
    require.NoError(t, err)
}

func TestReleaseIsIdempotentAndOwnerOnly(t *testing.T) {
    f := newFixture(t, 1)
    ctx := context.Background()

    r, err := f.res.Reserve(ctx, alice, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: f.ids("A1", "A2")})
    require.NoError(t, err)

    _, err = f.res.Release(ctx, bob, r.SessionID)
    assert.True(t, errors.Is(err, ErrForbidden))

    n, err := f.res.Release(ctx, alice, r.SessionID)
    require.NoError(t, err)
    assert.Equal(t, int64(2), n)

    n, err = f.res.Release(ctx, alice, r.SessionID)
    require.NoError(t, err)
    assert.Zero(t, n)

    n, err = f.res.Release(ctx, alice, uuid.NewString())
    require.NoError(t, err)
    assert.Zero(t, n)

    other, err := f.res.Reserve(ctx, bob, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: f.ids("A3")})
    require.NoError(t, err)
    f.clock.Advance(time.Hour)
    n, err = f.res.Release(ctx, admin, other.SessionID)
    require.NoError(t, err)
    assert.Zero(t, n, "expired holds do not count as released")
    assert.Zero(t, f.store.ActiveHoldCount(f.sched.ID, f.clock.Now()))
}

func TestReleaseAcceptsAnySessionSpelling(t *testing.T) {
    f := newFixture(t, 1)
    ctx := context.Background()

    r, err := f.res.Reserve(ctx, alice, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: f.ids("A1")})
    require.NoError(t, err)

    n, err := f.res.Release(ctx, alice, strings.ToUpper(r.SessionID))
    require.NoError(t, err)
    assert.Equal(t, int64(1), n)
    assert.Zero(t, f.store.ActiveHoldCount(f.sched.ID, testNow))

    _, err = f.res.Release(ctx, alice, "not-a-session")
    assert.ErrorIs(t, err, ErrInvalidInput)
}
