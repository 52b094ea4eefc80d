package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wild-pasta-booking/internal/handler"
	"github.com/iliyamo/wild-pasta-booking/internal/middleware"
)

// RegisterMember registers the signed-in member's endpoints under /v1/me.
func RegisterMember(e *echo.Echo, h *handler.MemberHandler, jwtSecret string) {
	g := e.Group(
		"/v1/me",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(memberRoles...),
	)
	g.GET("", h.Me)
	g.GET("/reservations", h.Reservations)
	g.GET("/takeouts", h.Takeouts)
	g.GET("/points", h.Points)
}

// RegisterAccount registers profile changes under /v1/me, the password
// recovery steps under /v1/auth/forgot-password and the public contact form.
// Everything that mails a code or guesses one is rate limited.
func RegisterAccount(e *echo.Echo, h *handler.AccountHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	me := e.Group(
		"/v1/me",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(memberRoles...),
	)
	me.POST("/email/request", h.RequestEmailChange, limit)
	me.POST("/email/verify", h.VerifyEmail, limit)
	me.POST("/phone", h.ChangePhone)
	me.POST("/name", h.ChangeName)
	me.POST("/password", h.ChangePassword, limit)

	fp := e.Group("/v1/auth/forgot-password", limit)
	fp.POST("", h.ForgotPassword)
	fp.POST("/verify", h.VerifyForgotPassword)
	fp.POST("/reset", h.ResetPassword)

	e.POST("/v1/contact", h.Contact, limit)
}

// RegisterSystem registers operator endpoints guarded by the x-api-token
// header.
func RegisterSystem(e *echo.Echo, h *handler.SystemHandler, tokenHash string) {
	g := e.Group("/v1/system", middleware.SystemToken(tokenHash))
	g.POST("/takeout/reset", h.ResetTakeout)
	g.POST("/reservations/seed", h.SeedReservations)
}
