package handler // handler defines the HTTP handlers of the inventory API

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seat-inventory/internal/middleware"
    "github.com/iliyamo/seat-inventory/internal/service"
)

// The helpers below return *echo.HTTPError values carrying an echo.Map so
// echo's error handler writes the same body shape as writeError.

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
    n, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || n == 0 {
        return 0, echo.NewHTTPError(http.StatusBadRequest, echo.Map{"error": "invalid_input", "message": "invalid " + name})
    }
    return n, nil
}

// actor returns the authenticated caller.
func actor(c echo.Context) (service.Actor, error) {
    a, ok := middleware.ActorFrom(c)
    if !ok {
        return service.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    return a, nil
}

// bind decodes and validates the request body into v.
func bind(c echo.Context, v interface{}) error {
    if err := c.Bind(v); err != nil {
        return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"error": "invalid_input", "message": "invalid request body"})
    }
    if err := c.Validate(v); err != nil {
        return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"error": "invalid_input", "message": err.Error()})
    }
    return nil
}
