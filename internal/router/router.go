package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wild-pasta-booking/internal/config"
	"github.com/iliyamo/wild-pasta-booking/internal/handler"
	"github.com/iliyamo/wild-pasta-booking/internal/middleware"
)

// Roles accepted on member routes.
var memberRoles = []string{"CUSTOMER", "OWNER"}

// Handlers groups every HTTP handler the API serves.
type Handlers struct {
	Auth         *handler.AuthHandler
	Reservations *handler.ReservationHandler
	Takeout      *handler.TakeoutHandler
	Members      *handler.MemberHandler
	Accounts     *handler.AccountHandler
	System       *handler.SystemHandler
}

// Options carries what the route table needs besides handlers.  Redis may be
// nil, in which case rate limiting and response caching are disabled.
type Options struct {
	Config config.Config
	DB     *sql.DB
	Redis  *redis.Client
	Log    *logrus.Logger
}

// New builds the Echo instance with global middleware and every route.
func New(h Handlers, opt Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(opt.Log))
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("64K"))

	limit := middleware.NewTokenBucket(opt.Config.RateLimit, opt.Redis, opt.Log)
	cache := middleware.NewRedisCache(opt.Config.Cache, opt.Redis, opt.Log)
	secret := opt.Config.JWTSecret

	RegisterRoutes(e, opt.DB)
	RegisterAuth(e, h.Auth, secret, limit)
	RegisterAccount(e, h.Accounts, secret, limit)
	RegisterReservations(e, h.Reservations, secret, limit, cache)
	RegisterTakeout(e, h.Takeout, secret, limit, cache)
	RegisterMember(e, h.Members, secret)
	RegisterSystem(e, h.System, opt.Config.SystemTokenHash)
	return e
}

// RegisterRoutes registers the health checks.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterAuth registers account routes under /v1/auth.  Logout accepts
// either a refresh token in the body or a bearer token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))
}
