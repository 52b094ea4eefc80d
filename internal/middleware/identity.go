package middleware

// identity.go holds accessors for the caller identity stored by JWTAuth and
// OptionalJWT.  An empty user id means the request is anonymous.

import "github.com/labstack/echo/v4"

// UserID returns the authenticated member's id, or "" for guests.
func UserID(c echo.Context) string {
    s, _ := c.Get(CtxUserID).(string)
    return s
}

// Role returns the authenticated member's role, or "".
func Role(c echo.Context) string {
    s, _ := c.Get(CtxRole).(string)
    return s
}

// rateIdentity is the user part of a rate limit key.
func rateIdentity(c echo.Context) string {
    if id := UserID(c); id != "" {
        return id
    }
    return "anon"
}
