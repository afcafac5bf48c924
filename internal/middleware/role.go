package middleware // middleware provides shared request processing for handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seat-inventory/internal/service"
)

// RequireRole rejects callers whose role is not in roles with 403.  It
// must run after JWTAuth.  Ownership checks are not done here; the
// services ask service.Policy for those.
func RequireRole(roles ...service.Role) echo.MiddlewareFunc {
    allowed := make(map[service.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            a, ok := ActorFrom(c)
            if !ok || !allowed[a.Role] {
                return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
