package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wild-pasta-booking/internal/handler"
	"github.com/iliyamo/wild-pasta-booking/internal/middleware"
)

// RegisterReservations registers dine-in routes.  Availability and the
// emailed cancel link are public; booking and owner cancellation need a
// member token.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, limit, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/reservations")
	g.GET("/availability", h.Availability, cache)
	g.POST("/cancel-link", h.CancelByLink, limit)

	auth := middleware.JWTAuth(jwtSecret)
	role := middleware.RequireRole(memberRoles...)
	g.POST("", h.Create, limit, auth, role)
	g.POST("/:ord/cancel", h.Cancel, auth, role)
}

// RegisterTakeout registers takeout routes.  Ordering and checkout accept
// guests through OptionalJWT.  The payment webhook is never rate limited:
// the gateway's retries must always get through.
func RegisterTakeout(e *echo.Echo, h *handler.TakeoutHandler, jwtSecret string, limit, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/takeout")
	g.GET("/availability", h.Availability, cache)

	optional := middleware.OptionalJWT(jwtSecret)
	g.POST("/orders", h.PlaceOrder, limit, optional)
	g.POST("/checkout", h.Checkout, limit, optional)
	g.POST("/ecpay/return", h.PaymentReturn)
	g.POST("/cancel-link", h.CancelByLink, limit)

	g.POST("/:ord/cancel", h.Cancel, middleware.JWTAuth(jwtSecret), middleware.RequireRole(memberRoles...))
}
