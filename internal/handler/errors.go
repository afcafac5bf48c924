package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seat-inventory/internal/model"
    "github.com/iliyamo/seat-inventory/internal/service"
)

// writeError maps service errors onto HTTP responses.  Expected outcomes get
// a structured body; anything unknown is a 500 and the cause stays in the
// request log.
func writeError(c echo.Context, err error) error {
    var (
        conflict *service.ConflictError
        closed   *service.WindowClosedError
        nf       *service.NotFoundError
    )
    switch {
    case errors.As(err, &conflict):
        return c.JSON(http.StatusConflict, echo.Map{
            "error":        "seats_unavailable",
            "message":      conflict.Error(),
            "unavailable":  conflict.SeatIDs,
            "labels":       nonNil(conflict.Labels),
            "alternatives": alternatives(conflict.Alternatives),
        })
    case errors.As(err, &closed):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{
            "error":        "booking_window_closed",
            "message":      closed.Error(),
            "minutes_late": closed.MinutesLate,
            "rule":         closed.Rule,
            "starts_at":    closed.StartsAt,
            "cutoff":       closed.Cutoff,
        })
    case errors.As(err, &nf):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": nf.Error()})
    case errors.Is(err, service.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
    case errors.Is(err, service.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, service.ErrInvalidTransition):
        return c.JSON(http.StatusConflict, echo.Map{"error": "invalid_transition", "message": err.Error()})
    case errors.Is(err, service.ErrInvalidInput):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input", "message": err.Error()})
    }
    c.Logger().Error(err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

type altSeat struct {
    ID    uint64 `json:"id"`
    Label string `json:"label"`
}

func alternatives(seats []model.Seat) []altSeat {
    out := make([]altSeat, 0, len(seats))
    for _, s := range seats {
        out = append(out, altSeat{ID: s.ID, Label: s.Label()})
    }
    return out
}

func nonNil(s []string) []string {
    if s == nil {
        return []string{}
    }
    return s
}
