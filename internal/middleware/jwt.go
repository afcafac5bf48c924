package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strconv"
    "strings" // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/seat-inventory/internal/service"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the caller as a service.Actor in the request context.  The token
// subject is the numeric user id (string or number) and the "role" claim is
// one of CUSTOMER, ORGANIZER or ADMIN.  The raw values stay available as
// c.Get("user_id") and c.Get("role") for the rate limiter and role gate.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Only HMAC tokens signed with our secret are accepted.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }

            uid, ok := subject(claims["sub"])
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
            }
            role, _ := claims["role"].(string)
            role = strings.ToUpper(role)

            c.Set(actorKey, service.Actor{UserID: uid, Role: service.Role(role)})
            c.Set("user_id", strconv.FormatUint(uid, 10))
            c.Set("role", role)
            return next(c)
        }
    }
}

// subject reads the user id from the sub claim.  JSON numbers decode as
// float64, string subjects must be base-10.
func subject(v interface{}) (uint64, bool) {
    switch s := v.(type) {
    case string:
        n, err := strconv.ParseUint(s, 10, 64)
        return n, err == nil && n > 0
    case float64:
        if s <= 0 || s != float64(uint64(s)) {
            return 0, false
        }
        return uint64(s), true
    }
    return 0, false
}
