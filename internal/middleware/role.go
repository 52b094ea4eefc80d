package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// RequireRole aborts with 403 unless JWTAuth stored one of roles under the
// "role" context key.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !allowed[Role(c)] {
                return c.JSON(http.StatusForbidden, echo.Map{"code": "forbidden", "error": "forbidden"})
            }
            return next(c)
        }
    }
}
