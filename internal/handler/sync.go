package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seat-inventory/internal/service"
)

// SyncHandler exposes the reconciler to admins.  Inconsistencies are part of
// the 200 report, never an error status: the counters were still rewritten.
type SyncHandler struct {
    Reconciler *service.Reconciler
}

// NewSyncHandler panics on a nil service.
func NewSyncHandler(r *service.Reconciler) *SyncHandler {
    if r == nil {
        panic("nil reconciler passed to NewSyncHandler")
    }
    return &SyncHandler{Reconciler: r}
}

// Schedule handles POST /v1/admin/sync/schedules/:schedule_id.
func (h *SyncHandler) Schedule(c echo.Context) error {
    id, err := pathID(c, "schedule_id")
    if err != nil {
        return err
    }
    rep, err := h.Reconciler.SynchronizeSchedule(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, rep)
}

// Venue handles POST /v1/admin/sync/venues/:venue_id.
func (h *SyncHandler) Venue(c echo.Context) error {
    id, err := pathID(c, "venue_id")
    if err != nil {
        return err
    }
    sum, err := h.Reconciler.SynchronizeVenue(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, sum)
}

// All handles POST /v1/admin/sync/all.
func (h *SyncHandler) All(c echo.Context) error {
    sum, err := h.Reconciler.SynchronizeAll(c.Request().Context())
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, sum)
}
