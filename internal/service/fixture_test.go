package service

import (
    "context"
    "fmt"
    "sync"
    "testing"
    "time"

    "github.com/iliyamo/seat-inventory/internal/model"
    "github.com/iliyamo/seat-inventory/internal/repository"
)

var testNow = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

const creatorID = 500

var (
    alice = Actor{UserID: 1, Role: RoleCustomer}
    bob   = Actor{UserID: 2, Role: RoleCustomer}
    admin = Actor{UserID: 900, Role: RoleAdmin}
    host  = Actor{UserID: creatorID, Role: RoleOrganizer}
)

type fakeClock struct {
    mu  sync.Mutex
    now time.Time
}

func (c *fakeClock) Now() time.Time {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.now = c.now.Add(d)
}

type published struct {
    key     string
    payload any
}

type recordingPublisher struct {
    mu     sync.Mutex
    events []published
}

func (p *recordingPublisher) Publish(_ context.Context, key string, payload any) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.events = append(p.events, published{key: key, payload: payload})
    return nil
}

func (p *recordingPublisher) keys() []string {
    p.mu.Lock()
    defer p.mu.Unlock()
    out := make([]string, 0, len(p.events))
    for _, e := range p.events {
        out = append(out, e.key)
    }
    return out
}

type fixture struct {
    store *repository.MemoryStore
    clock *fakeClock
    pub   *recordingPublisher
    venue model.Venue
    show  model.Show
    sched model.ShowSchedule
    seats map[string]model.Seat

    inv  *Inventory
    res  *ReservationManager
    book *BookingCommitter
    rec  *Reconciler
}

// newFixture seeds a venue with rows x 10 seats (A1..), a MOVIE show priced
// at 1000 cents created by creatorID and one schedule two hours ahead.
func newFixture(t *testing.T, rows int, opts ...Option) *fixture {
    t.Helper()
    f := &fixture{
        store: repository.NewMemoryStore(),
        clock: &fakeClock{now: testNow},
        pub:   &recordingPublisher{},
        seats: map[string]model.Seat{},
    }
    total := uint32(rows * 10)
    f.venue = f.store.AddVenue(model.Venue{Name: "Main Hall", Capacity: total})
    for r := 0; r < rows; r++ {
        row := string(rune('A' + r))
        for n := 1; n <= 10; n++ {
            s := f.store.AddSeat(model.Seat{VenueID: f.venue.ID, RowLabel: row, SeatNumber: uint32(n)})
            f.seats[fmt.Sprintf("%s%d", row, n)] = s
        }
    }
    f.show = f.store.AddShow(model.Show{Title: "Premiere", Category: "MOVIE", BasePriceCents: 1000, CreatedBy: creatorID})
    f.sched = f.store.AddSchedule(model.ShowSchedule{
        ShowID: f.show.ID, VenueID: f.venue.ID, StartsAt: testNow.Add(2 * time.Hour),
        TotalSeats: total, SeatsAvailable: total,
    })

    all := append([]Option{WithClock(f.clock.Now), WithPublisher(f.pub)}, opts...)
    f.inv = NewInventory(f.store, all...)
    f.res = NewReservationManager(f.store, all...)
    f.book = NewBookingCommitter(f.store, all...)
    f.rec = NewReconciler(f.store, all...)
    return f
}

func (f *fixture) ids(labels ...string) []uint64 {
    out := make([]uint64, 0, len(labels))
    for _, l := range labels {
        s, ok := f.seats[l]
        if !ok {
            panic("unknown seat " + l)
        }
        out = append(out, s.ID)
    }
    return out
}

func (f *fixture) schedule(t *testing.T) model.ShowSchedule {
    t.Helper()
    s, err := f.store.GetSchedule(context.Background(), f.sched.ID)
    if err != nil {
        t.Fatalf("get schedule: %v", err)
    }
    return s
}
