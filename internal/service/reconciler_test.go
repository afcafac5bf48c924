package service

import (
    "context"
    "math/rand"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/seat-inventory/internal/model"
    "github.com/iliyamo/seat-inventory/internal/queue"
)

func TestSynchronizeScheduleCorrectsManualTotal(t *testing.T) {
    f := newFixture(t, 12)
    ctx := context.Background()
    _, err := f.book.Commit(ctx, alice, CommitRequest{ScheduleID: f.sched.ID, SeatIDs: f.ids("A1", "A2")})
    require.NoError(t, err)
    f.store.SetScheduleCounts(f.sched.ID, model.ScheduleCounts{TotalSeats: 150, SeatsAvailable: 148})

    rep, err := f.rec.SynchronizeSchedule(ctx, f.sched.ID)
    require.NoError(t, err)
    assert.Equal(t, model.ScheduleCounts{TotalSeats: 150, SeatsAvailable: 148}, rep.Before)
    assert.Equal(t, model.ScheduleCounts{TotalSeats: 120, SeatsAvailable: 118}, rep.After)
    assert.True(t, rep.Drifted)
    assert.True(t, rep.Inconsistent)
    require.Len(t, rep.Anomalies, 1)
    assert.Equal(t, AnomalyTotalMismatch, rep.Anomalies[0].Kind)
    assert.ErrorIs(t, rep.Err(), ErrInconsistentState)

    sched := f.schedule(t)
    assert.Equal(t, uint32(120), sched.TotalSeats)
    assert.Equal(t, uint32(118), sched.SeatsAvailable)

    keys := f.pub.keys()
    require.NotEmpty(t, keys)
    assert.Equal(t, queue.RouteInventoryInconsistent, keys[len(keys)-1])

    again, err := f.rec.SynchronizeSchedule(ctx, f.sched.ID)
    require.NoError(t, err)
    assert.Equal(t, rep.After, again.After)
    assert.False(t, again.Drifted)
    assert.False(t, again.Inconsistent)
    assert.NoError(t, again.Err())
}

func TestSynchronizeScheduleFixesCounterDrift(t *testing.T) {
    f := newFixture(t, 10)
    ctx := context.Background()
    f.store.SetScheduleCounts(f.sched.ID, model.ScheduleCounts{TotalSeats: 100, SeatsAvailable: 37})

    rep, err := f.rec.SynchronizeSchedule(ctx, f.sched.ID)
    require.NoError(t, err)
    assert.True(t, rep.Drifted)
    assert.False(t, rep.Inconsistent)
    assert.Equal(t, uint32(100), rep.After.SeatsAvailable)
    assert.Empty(t, f.pub.keys())

    _, err = f.rec.SynchronizeSchedule(ctx, 98765)
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestSynchronizeVenueAndAll(t *testing.T) {
    f := newFixture(t, 2)
    ctx := context.Background()
    second := f.store.AddSchedule(model.ShowSchedule{
        ShowID: f.show.ID, VenueID: f.venue.ID, StartsAt: testNow.Add(48 * time.Hour), TotalSeats: 20, SeatsAvailable: 3,
    })
    annex := f.store.AddVenue(model.Venue{Name: "Annex", Capacity: 40})
    f.store.AddSchedule(model.ShowSchedule{
        ShowID: f.show.ID, VenueID: annex.ID, StartsAt: testNow.Add(time.Hour), TotalSeats: 40, SeatsAvailable: 40,
    })

    sum, err := f.rec.SynchronizeVenue(ctx, f.venue.ID)
    require.NoError(t, err)
    assert.Equal(t, 2, sum.Schedules)
    assert.Equal(t, 2, sum.Synced)
    assert.Equal(t, 1, sum.Drifted)
    assert.Zero(t, sum.Inconsistent)
    got, err := f.store.GetSchedule(ctx, second.ID)
    require.NoError(t, err)
    assert.Equal(t, uint32(20), got.SeatsAvailable)

    _, err = f.rec.SynchronizeVenue(ctx, 5555)
    assert.ErrorIs(t, err, ErrNotFound)

    all, err := f.rec.SynchronizeAll(ctx)
    require.NoError(t, err)
    assert.Equal(t, 3, all.Schedules)
    assert.Equal(t, 3, all.Synced)
    assert.Zero(t, all.Drifted, "the annex has no modeled seats and keeps its capacity")
    assert.Zero(t, all.Failed)
}

func TestRecompute(t *testing.T) {
    cases := []struct {
        name string
        snap model.ScheduleSnapshot
        want model.ScheduleCounts
    }{
        {"modeled seats", model.ScheduleSnapshot{VenueCapacity: 100, PhysicalSeats: 120, ActiveBooked: 20}, model.ScheduleCounts{TotalSeats: 120, SeatsAvailable: 100}},
        {"capacity fallback", model.ScheduleSnapshot{VenueCapacity: 80, ActiveBooked: 5}, model.ScheduleCounts{TotalSeats: 80, SeatsAvailable: 75}},
        {"overbooked clamps", model.ScheduleSnapshot{PhysicalSeats: 3, ActiveBooked: 5}, model.ScheduleCounts{TotalSeats: 3, SeatsAvailable: 0}},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            assert.Equal(t, tc.want, Recompute(tc.snap))
        })
    }
}

func TestAnomalies(t *testing.T) {
    kinds := func(s model.ScheduleSnapshot) []string {
        out := []string{}
        for _, a := range anomalies(s, Recompute(s)) {
            out = append(out, a.Kind)
        }
        return out
    }
    sched := model.ShowSchedule{TotalSeats: 10}

    assert.Empty(t, kinds(model.ScheduleSnapshot{Schedule: sched, VenueCapacity: 10, PhysicalSeats: 10, ActiveBooked: 4, ActiveHeld: 6}))
    assert.Equal(t, []string{AnomalyCapacityMismatch},
        kinds(model.ScheduleSnapshot{Schedule: sched, VenueCapacity: 12, PhysicalSeats: 10}))
    assert.Equal(t, []string{AnomalyOverbooked},
        kinds(model.ScheduleSnapshot{Schedule: sched, VenueCapacity: 10, PhysicalSeats: 10, ActiveBooked: 11}))
    assert.Equal(t, []string{AnomalyOvercommitted},
        kinds(model.ScheduleSnapshot{Schedule: sched, VenueCapacity: 10, PhysicalSeats: 10, ActiveBooked: 6, ActiveHeld: 5}))
    assert.Equal(t, []string{AnomalyTotalMismatch},
        kinds(model.ScheduleSnapshot{Schedule: model.ShowSchedule{TotalSeats: 150}, VenueCapacity: 120, PhysicalSeats: 120}))
}

// Random reserve, commit, cancel and release traffic from several
// goroutines must never leave more seats claimed than the schedule has.
func TestBookedPlusHeldNeverExceedsTotal(t *testing.T) {
    f := newFixture(t, 2)
    ctx := context.Background()
    labels := make([]string, 0, len(f.seats))
    for l := range f.seats {
        labels = append(labels, l)
    }

    var wg sync.WaitGroup
    for w := 0; w < 8; w++ {
        wg.Add(1)
        go func(w int) {
            defer wg.Done()
            rng := rand.New(rand.NewSource(int64(w)))
            actor := Actor{UserID: uint64(100 + w), Role: RoleCustomer}
            pick := func() []uint64 {
                n := 1 + rng.Intn(3)
                out := make([]string, 0, n)
                for i := 0; i < n; i++ {
                    out = append(out, labels[rng.Intn(len(labels))])
                }
                return f.ids(out...)
            }
            for i := 0; i < 60; i++ {
                switch rng.Intn(4) {
                case 0:
                    r, err := f.res.Reserve(ctx, actor, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: pick()})
                    if err == nil && rng.Intn(2) == 0 {
                        _, _ = f.res.Release(ctx, actor, r.SessionID)
                    }
                case 1:
                    r, err := f.res.Reserve(ctx, actor, ReserveRequest{ScheduleID: f.sched.ID, SeatIDs: pick()})
                    if err == nil {
                        _, _ = f.book.Commit(ctx, actor, CommitRequest{ScheduleID: f.sched.ID, SessionID: r.SessionID})
                    }
                case 2:
                    b, err := f.book.Commit(ctx, actor, CommitRequest{ScheduleID: f.sched.ID, SeatIDs: pick()})
                    if err == nil && rng.Intn(2) == 0 {
                        _, _ = f.book.Cancel(ctx, actor, b.ID)
                    }
                default:
                    _, _ = f.res.SweepExpired(ctx)
                }
                occ, err := f.store.LoadOccupancy(ctx, f.sched.ID, testNow)
                if assert.NoError(t, err) {
                    assert.LessOrEqual(t, len(occ.Booked)+len(occ.Held), 20)
                }
            }
        }(w)
    }
    wg.Wait()

    rep, err := f.rec.SynchronizeSchedule(ctx, f.sched.ID)
    require.NoError(t, err)
    assert.LessOrEqual(t, rep.Booked+rep.Held, rep.After.TotalSeats)
    assert.False(t, rep.Drifted, "commit and cancel kept the counter exact")
    assert.False(t, rep.Inconsistent)
}
