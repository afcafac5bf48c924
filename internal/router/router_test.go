package router

import (
    "context"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync/atomic"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "github.com/tidwall/gjson"

    "github.com/iliyamo/seat-inventory/internal/handler"
    "github.com/iliyamo/seat-inventory/internal/model"
    "github.com/iliyamo/seat-inventory/internal/repository"
    "github.com/iliyamo/seat-inventory/internal/service"
    "github.com/iliyamo/seat-inventory/internal/utils"
)

const secret = "router-secret"

type api struct {
    e       *echo.Echo
    store   *repository.MemoryStore
    venue   model.Venue
    sched   model.ShowSchedule
    started model.ShowSchedule
    seats   []model.Seat
    purged  atomic.Int32
}

// newAPI serves a 2x10 venue with one movie schedule two hours ahead and
// one concert that started an hour ago.
func newAPI(t *testing.T) *api {
    t.Helper()
    a := &api{store: repository.NewMemoryStore()}
    a.venue = a.store.AddVenue(model.Venue{Name: "Studio", Capacity: 20})
    for _, row := range []string{"A", "B"} {
        for n := 1; n <= 10; n++ {
            a.seats = append(a.seats, a.store.AddSeat(model.Seat{VenueID: a.venue.ID, RowLabel: row, SeatNumber: uint32(n)}))
        }
    }
    movie := a.store.AddShow(model.Show{Title: "Night Run", Category: "MOVIE", BasePriceCents: 1200, CreatedBy: 50})
    concert := a.store.AddShow(model.Show{Title: "Strings", Category: "CONCERT", BasePriceCents: 3000, CreatedBy: 50})
    a.sched = a.store.AddSchedule(model.ShowSchedule{
        ShowID: movie.ID, VenueID: a.venue.ID, StartsAt: time.Now().Add(2 * time.Hour),
        TotalSeats: 20, SeatsAvailable: 20,
    })
    a.started = a.store.AddSchedule(model.ShowSchedule{
        ShowID: concert.ID, VenueID: a.venue.ID, StartsAt: time.Now().Add(-time.Hour),
        TotalSeats: 20, SeatsAvailable: 20,
    })

    inv := service.NewInventory(a.store)
    a.e = echo.New()
    a.e.Validator = handler.NewRequestValidator()
    RegisterRoutes(a.e, Handlers{
        Inventory: handler.NewInventoryHandler(inv, func(context.Context) { a.purged.Add(1) }),
        Reservations: handler.NewReservationHandler(service.NewReservationManager(a.store)),
        Bookings:     handler.NewBookingHandler(service.NewBookingCommitter(a.store)),
        Sync:         handler.NewSyncHandler(service.NewReconciler(a.store)),
        Ready:        handler.Ready(nil),
        JWTSecret:    secret,
    })
    return a
}

func token(t *testing.T, uid uint64, role string) string {
    t.Helper()
    tok, err := utils.NewAccessToken(secret, uid, role, time.Hour)
    require.NoError(t, err)
    return tok.Token
}

func (a *api) do(method, path, tok, body string) *httptest.ResponseRecorder {
    var req *http.Request
    if body != "" {
        req = httptest.NewRequest(method, path, strings.NewReader(body))
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    } else {
        req = httptest.NewRequest(method, path, nil)
    }
    if tok != "" {
        req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
    }
    rec := httptest.NewRecorder()
    a.e.ServeHTTP(rec, req)
    return rec
}

func (a *api) reservePath(s model.ShowSchedule) string {
    return fmt.Sprintf("/v1/schedules/%d/reservations", s.ID)
}

func (a *api) bookingPath(s model.ShowSchedule) string {
    return fmt.Sprintf("/v1/schedules/%d/bookings", s.ID)
}

func TestHealthAndReadiness(t *testing.T) {
    a := newAPI(t)

    rec := a.do(http.MethodGet, "/healthz", "", "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "ok", rec.Body.String())

    rec = a.do(http.MethodGet, "/readyz", "", "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "ok", gjson.Get(rec.Body.String(), "status").String())
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return fmt.Errorf("connection refused") }

func TestReadinessReportsDatabaseDown(t *testing.T) {
    e := echo.New()
    e.GET("/readyz", handler.Ready(failingPinger{}))
    req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
    assert.Contains(t, gjson.Get(rec.Body.String(), "database").String(), "refused")
}

func TestPublicSeatViews(t *testing.T) {
    a := newAPI(t)

    rec := a.do(http.MethodGet, fmt.Sprintf("/v1/venues/%d/seats", a.venue.ID), "", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, int64(20), gjson.Get(rec.Body.String(), "seat_count").Int())
    assert.Equal(t, int64(2), gjson.Get(rec.Body.String(), "rows.#").Int())

    rec = a.do(http.MethodGet, "/v1/venues/999/seats", "", "")
    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.Equal(t, "not_found", gjson.Get(rec.Body.String(), "error").String())

    rec = a.do(http.MethodGet, "/v1/venues/abc/seats", "", "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    mapPath := fmt.Sprintf("/v1/venues/%d/schedules/%d/seats", a.venue.ID, a.sched.ID)
    rec = a.do(http.MethodGet, mapPath, "", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, int64(20), gjson.Get(rec.Body.String(), "seats_available").Int())

    rec = a.do(http.MethodGet, mapPath+"?view=available", "", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, int64(20), gjson.Get(rec.Body.String(), "count").Int())
}

func TestReserveRequiresCustomerOrAdmin(t *testing.T) {
    a := newAPI(t)
    body := fmt.Sprintf(`{"seat_ids":[%d]}`, a.seats[0].ID)

    rec := a.do(http.MethodPost, a.reservePath(a.sched), "", body)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = a.do(http.MethodPost, a.reservePath(a.sched), token(t, 50, "ORGANIZER"), body)
    assert.Equal(t, http.StatusForbidden, rec.Code)

    rec = a.do(http.MethodPost, a.reservePath(a.sched), token(t, 900, "ADMIN"), body)
    assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestReserveValidation(t *testing.T) {
    a := newAPI(t)
    alice := token(t, 1, "CUSTOMER")

    for name, body := range map[string]string{
        "empty seats":   `{"seat_ids":[]}`,
        "zero seat id":  `{"seat_ids":[0]}`,
        "bad session":   fmt.Sprintf(`{"seat_ids":[%d],"session_id":"nope"}`, a.seats[0].ID),
        "negative ttl":  fmt.Sprintf(`{"seat_ids":[%d],"ttl_minutes":-1}`, a.seats[0].ID),
        "malformed":     `{"seat_ids":`,
        "ttl too long":  fmt.Sprintf(`{"seat_ids":[%d],"ttl_minutes":600}`, a.seats[0].ID),
    } {
        t.Run(name, func(t *testing.T) {
            rec := a.do(http.MethodPost, a.reservePath(a.sched), alice, body)
            assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
            assert.Equal(t, "invalid_input", gjson.Get(rec.Body.String(), "error").String())
        })
    }

    rec := a.do(http.MethodPost, a.reservePath(a.sched), alice, `{"seat_ids":[424242]}`)
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReserveConflictThenCommit(t *testing.T) {
    a := newAPI(t)
    alice := token(t, 1, "CUSTOMER")
    bob := token(t, 2, "CUSTOMER")
    a1, a2 := a.seats[0], a.seats[1]

    rec := a.do(http.MethodPost, a.reservePath(a.sched), alice, fmt.Sprintf(`{"seat_ids":[%d,%d]}`, a1.ID, a2.ID))
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    session := gjson.Get(rec.Body.String(), "session_id").String()
    require.NotEmpty(t, session)
    assert.Equal(t, int64(2), gjson.Get(rec.Body.String(), "holds.#").Int())

    rec = a.do(http.MethodPost, a.reservePath(a.sched), bob, fmt.Sprintf(`{"seat_ids":[%d]}`, a2.ID))
    require.Equal(t, http.StatusConflict, rec.Code)
    body := rec.Body.String()
    assert.Equal(t, "seats_unavailable", gjson.Get(body, "error").String())
    assert.Equal(t, a2.ID, gjson.Get(body, "unavailable.0").Uint())
    assert.Equal(t, "A2", gjson.Get(body, "labels.0").String())
    assert.True(t, gjson.Get(body, "alternatives.#").Int() > 0)

    rec = a.do(http.MethodGet, fmt.Sprintf("/v1/schedules/%d/seats/%d", a.sched.ID, a1.ID), "", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.False(t, gjson.Get(rec.Body.String(), "available").Bool())

    rec = a.do(http.MethodPost, a.bookingPath(a.sched), alice, fmt.Sprintf(`{"session_id":%q,"payment_ref":"pay_1"}`, session))
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    booking := rec.Body.String()
    assert.Equal(t, "CONFIRMED", gjson.Get(booking, "status").String())
    assert.Equal(t, int64(2400), gjson.Get(booking, "total_amount_cents").Int())
    assert.Equal(t, int64(2), gjson.Get(booking, "seats.#").Int())
    id := gjson.Get(booking, "id").Uint()

    rec = a.do(http.MethodGet, fmt.Sprintf("/v1/venues/%d/schedules/%d/seats?view=available", a.venue.ID, a.sched.ID), "", "")
    assert.Equal(t, int64(18), gjson.Get(rec.Body.String(), "count").Int())

    rec = a.do(http.MethodGet, fmt.Sprintf("/v1/bookings/%d", id), bob, "")
    assert.Equal(t, http.StatusForbidden, rec.Code)
    rec = a.do(http.MethodGet, fmt.Sprintf("/v1/bookings/%d", id), token(t, 50, "ORGANIZER"), "")
    assert.Equal(t, http.StatusOK, rec.Code)
    rec = a.do(http.MethodGet, "/v1/bookings/9999", alice, "")
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommitWindowClosed(t *testing.T) {
    a := newAPI(t)
    alice := token(t, 1, "CUSTOMER")

    rec := a.do(http.MethodPost, a.bookingPath(a.started), alice, fmt.Sprintf(`{"seat_ids":[%d]}`, a.seats[0].ID))
    require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
    body := rec.Body.String()
    assert.Equal(t, "booking_window_closed", gjson.Get(body, "error").String())
    assert.True(t, gjson.Get(body, "minutes_late").Int() >= 59)
    assert.NotEmpty(t, gjson.Get(body, "rule").String())
}

func TestCommitRejectsBadDiscountCode(t *testing.T) {
    a := newAPI(t)
    rec := a.do(http.MethodPost, a.bookingPath(a.sched), token(t, 1, "CUSTOMER"),
        fmt.Sprintf(`{"seat_ids":[%d],"discount_code":%q}`, a.seats[0].ID, "50% OFF"))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Contains(t, gjson.Get(rec.Body.String(), "message").String(), "DiscountCode failed promo")

    rec = a.do(http.MethodGet, fmt.Sprintf("/v1/schedules/%d/seats/%d", a.sched.ID, a.seats[0].ID), "", "")
    assert.True(t, gjson.Get(rec.Body.String(), "available").Bool())
}

func TestBookingLifecycle(t *testing.T) {
    a := newAPI(t)
    alice := token(t, 1, "CUSTOMER")
    admin := token(t, 900, "ADMIN")

    rec := a.do(http.MethodPost, a.bookingPath(a.sched), alice, fmt.Sprintf(`{"seat_ids":[%d]}`, a.seats[5].ID))
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    assert.Equal(t, "PENDING", gjson.Get(rec.Body.String(), "status").String())
    id := gjson.Get(rec.Body.String(), "id").Uint()

    confirmPath := fmt.Sprintf("/v1/bookings/%d/confirm", id)
    rec = a.do(http.MethodPost, confirmPath, alice, `{}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    rec = a.do(http.MethodPost, confirmPath, alice, `{"payment_ref":"pay_9"}`)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    assert.Equal(t, "CONFIRMED", gjson.Get(rec.Body.String(), "status").String())

    refundPath := fmt.Sprintf("/v1/admin/bookings/%d/refund", id)
    rec = a.do(http.MethodPost, refundPath, alice, "")
    assert.Equal(t, http.StatusForbidden, rec.Code)
    rec = a.do(http.MethodPost, refundPath, admin, "")
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    assert.Equal(t, "REFUNDED", gjson.Get(rec.Body.String(), "status").String())

    rec = a.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/confirm", id), alice, `{"payment_ref":"pay_10"}`)
    assert.Equal(t, http.StatusConflict, rec.Code)
    assert.Equal(t, "invalid_transition", gjson.Get(rec.Body.String(), "error").String())

    rec = a.do(http.MethodGet, fmt.Sprintf("/v1/schedules/%d/seats/%d", a.sched.ID, a.seats[5].ID), "", "")
    assert.True(t, gjson.Get(rec.Body.String(), "available").Bool())
}

func TestCancelBooking(t *testing.T) {
    a := newAPI(t)
    alice := token(t, 1, "CUSTOMER")

    rec := a.do(http.MethodPost, a.bookingPath(a.sched), alice, fmt.Sprintf(`{"seat_ids":[%d],"payment_ref":"p"}`, a.seats[3].ID))
    require.Equal(t, http.StatusCreated, rec.Code)
    id := gjson.Get(rec.Body.String(), "id").Uint()

    rec = a.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/cancel", id), token(t, 2, "CUSTOMER"), "")
    assert.Equal(t, http.StatusForbidden, rec.Code)

    rec = a.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/cancel", id), alice, "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "CANCELLED", gjson.Get(rec.Body.String(), "status").String())
}

func TestReleaseSession(t *testing.T) {
    a := newAPI(t)
    alice := token(t, 1, "CUSTOMER")

    rec := a.do(http.MethodPost, a.reservePath(a.sched), alice, fmt.Sprintf(`{"seat_ids":[%d,%d,%d]}`, a.seats[0].ID, a.seats[1].ID, a.seats[2].ID))
    require.Equal(t, http.StatusCreated, rec.Code)
    session := gjson.Get(rec.Body.String(), "session_id").String()

    rec = a.do(http.MethodDelete, "/v1/reservations/"+session, token(t, 2, "CUSTOMER"), "")
    assert.Equal(t, http.StatusForbidden, rec.Code)

    rec = a.do(http.MethodDelete, "/v1/reservations/"+session, alice, "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, int64(3), gjson.Get(rec.Body.String(), "released").Int())

    rec = a.do(http.MethodDelete, "/v1/reservations/"+session, alice, "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, int64(0), gjson.Get(rec.Body.String(), "released").Int())
}

func TestAdminEndpoints(t *testing.T) {
    a := newAPI(t)
    admin := token(t, 900, "ADMIN")
    alice := token(t, 1, "CUSTOMER")

    rec := a.do(http.MethodPost, "/v1/admin/sync/all", alice, "")
    assert.Equal(t, http.StatusForbidden, rec.Code)

    a.store.SetScheduleCounts(a.sched.ID, model.ScheduleCounts{TotalSeats: 20, SeatsAvailable: 7})
    rec = a.do(http.MethodPost, fmt.Sprintf("/v1/admin/sync/schedules/%d", a.sched.ID), admin, "")
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    body := rec.Body.String()
    assert.True(t, gjson.Get(body, "drifted").Bool())
    assert.False(t, gjson.Get(body, "inconsistent").Bool())
    assert.Equal(t, int64(20), gjson.Get(body, "after.seats_available").Int())

    rec = a.do(http.MethodPost, fmt.Sprintf("/v1/admin/sync/venues/%d", a.venue.ID), admin, "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, int64(2), gjson.Get(rec.Body.String(), "schedules").Int())

    rec = a.do(http.MethodPost, "/v1/admin/sync/venues/999", admin, "")
    assert.Equal(t, http.StatusNotFound, rec.Code)

    rec = a.do(http.MethodPost, "/v1/admin/sync/all", admin, "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, int64(0), gjson.Get(rec.Body.String(), "failed").Int())

    rec = a.do(http.MethodPost, "/v1/admin/holds/sweep", admin, "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, int64(0), gjson.Get(rec.Body.String(), "deleted").Int())
}

func TestSetPriceMultiplier(t *testing.T) {
    a := newAPI(t)
    path := fmt.Sprintf("/v1/admin/seats/%d", a.seats[0].ID)

    rec := a.do(http.MethodPatch, path, token(t, 1, "CUSTOMER"), `{"price_multiplier":2}`)
    assert.Equal(t, http.StatusForbidden, rec.Code)

    rec = a.do(http.MethodPatch, path, token(t, 900, "ADMIN"), `{"price_multiplier":11}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, int32(0), a.purged.Load())

    rec = a.do(http.MethodPatch, path, token(t, 900, "ADMIN"), `{"price_multiplier":1.5}`)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    assert.Equal(t, int32(1), a.purged.Load())

    rec = a.do(http.MethodGet, fmt.Sprintf("/v1/venues/%d/schedules/%d/seats", a.venue.ID, a.sched.ID), "", "")
    assert.Equal(t, int64(1800), gjson.Get(rec.Body.String(), "rows.0.seats.0.price_cents").Int())

    rec = a.do(http.MethodPatch, "/v1/admin/seats/424242", token(t, 900, "ADMIN"), `{"price_multiplier":2}`)
    assert.Equal(t, http.StatusNotFound, rec.Code)
}
