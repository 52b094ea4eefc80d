package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/wild-pasta-booking/internal/utils"
)

// HeaderAPIToken carries the shared secret for system endpoints.
const HeaderAPIToken = "x-api-token"

// SystemToken guards operator endpoints with a static token whose bcrypt
// hash is configured.  An empty hash disables the endpoints entirely.
func SystemToken(hash string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if hash == "" {
                return c.JSON(http.StatusForbidden, echo.Map{"code": "system_disabled", "error": "system endpoints are disabled"})
            }
            tok := c.Request().Header.Get(HeaderAPIToken)
            if !utils.VerifySecret(hash, tok) {
                return c.JSON(http.StatusForbidden, echo.Map{"code": "forbidden", "error": "invalid api token"})
            }
            return next(c)
        }
    }
}
