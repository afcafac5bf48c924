package middleware

// identity.go holds the helpers that read the authenticated caller back out
// of the Echo context.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seat-inventory/internal/service"
)

const actorKey = "actor"

// ActorFrom returns the actor stored by JWTAuth.  ok is false on public
// routes.
func ActorFrom(c echo.Context) (service.Actor, bool) {
    a, ok := c.Get(actorKey).(service.Actor)
    return a, ok && a.UserID != 0
}

// userID returns the caller's id for rate limit keys, or "anon" when no
// user is authenticated.
func userID(c echo.Context) string {
    if a, ok := ActorFrom(c); ok {
        return strconv.FormatUint(a.UserID, 10)
    }
    if s, ok := c.Get("user_id").(string); ok && s != "" {
        return s
    }
    return "anon"
}
