package middleware // middleware provides shared request processing for handlers

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/wild-pasta-booking/internal/utils"
)

// Context keys set by the auth middleware.
const (
    CtxUserID = "user_id"
    CtxRole   = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject and role claims into the request context.  The
// provided secret must match the one used when issuing tokens.  Handlers read
// the caller with UserID(c) and Role(c).
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := bearer(c)
            if !ok {
                return unauthorized(c, "missing bearer token")
            }
            if !authenticate(c, secret, raw) {
                return unauthorized(c, "invalid token")
            }
            return next(c)
        }
    }
}

// OptionalJWT is JWTAuth for endpoints open to guests.  A request without an
// Authorization header proceeds anonymously; a header carrying a bad token is
// still rejected so a stale session never silently becomes a guest order.
func OptionalJWT(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
                return next(c)
            }
            raw, ok := bearer(c)
            if !ok || !authenticate(c, secret, raw) {
                return unauthorized(c, "invalid token")
            }
            return next(c)
        }
    }
}

func bearer(c echo.Context) (string, bool) {
    auth := c.Request().Header.Get(echo.HeaderAuthorization)
    if !strings.HasPrefix(auth, "Bearer ") {
        return "", false
    }
    raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
    return raw, raw != ""
}

func authenticate(c echo.Context, secret, raw string) bool {
    sub, role, err := utils.ParseAccessToken(secret, raw)
    if err != nil {
        return false
    }
    c.Set(CtxUserID, sub)
    c.Set(CtxRole, role)
    return true
}

func unauthorized(c echo.Context, msg string) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"code": "unauthenticated", "error": msg})
}
