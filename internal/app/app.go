// Package app wires configuration, storage and services into the processes
// the CLI starts.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wild-pasta-booking/internal/config"
	"github.com/iliyamo/wild-pasta-booking/internal/database"
	"github.com/iliyamo/wild-pasta-booking/internal/handler"
	"github.com/iliyamo/wild-pasta-booking/internal/jobs"
	"github.com/iliyamo/wild-pasta-booking/internal/logging"
	"github.com/iliyamo/wild-pasta-booking/internal/notify"
	"github.com/iliyamo/wild-pasta-booking/internal/payment/ecpay"
	"github.com/iliyamo/wild-pasta-booking/internal/queue"
	"github.com/iliyamo/wild-pasta-booking/internal/router"
	"github.com/iliyamo/wild-pasta-booking/internal/seeding"
	"github.com/iliyamo/wild-pasta-booking/internal/service"
)

// Core is what every process shares: configuration, the venue, the logger
// and, once Open has run, the database.
type Core struct {
	Cfg     config.Config
	Venue   *config.Venue
	Log     *logrus.Logger
	DB      *sql.DB
	Dialect database.Dialect
}

// NewCore loads the venue and builds the logger.  It does not touch the
// database.
func NewCore(cfg config.Config) (*Core, error) {
	log := logging.New(cfg.Log)
	venue := config.DefaultVenue()
	if cfg.VenueFile != "" {
		v, err := config.LoadVenue(cfg.VenueFile)
		if err != nil {
			return nil, err
		}
		venue = v
	}
	d, err := database.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	return &Core{Cfg: cfg, Venue: venue, Log: log, Dialect: d}, nil
}

// Open connects to the configured database.
func (c *Core) Open() error {
	db, err := database.Open(database.Options{
		Dialect: c.Dialect,
		User:    c.Cfg.DBUser,
		Pass:    c.Cfg.DBPass,
		Host:    c.Cfg.DBHost,
		Port:    c.Cfg.DBPort,
		Name:    c.Cfg.DBName,
		Path:    c.Cfg.DBPath,
	})
	if err != nil {
		return fmt.Errorf("open %s database: %w", c.Dialect, err)
	}
	c.DB = db
	return nil
}

// Migrate applies the embedded schema.
func (c *Core) Migrate(ctx context.Context) error {
	return database.Migrate(ctx, c.DB, c.Dialect)
}

// Close releases the database.
func (c *Core) Close() {
	if c.DB != nil {
		_ = c.DB.Close()
	}
}

// Seeder returns the capacity seeder over the open database.
func (c *Core) Seeder() *seeding.Seeder {
	return seeding.NewSeeder(c.DB, c.Dialect, c.Venue, c.Log, nil)
}

// RedisOpt converts the redis settings for asynq.
func (c *Core) RedisOpt() asynq.RedisClientOpt {
	r := c.Cfg.Redis
	return asynq.RedisClientOpt{Addr: r.Addr, Password: r.Password, DB: r.DB, TLSConfig: r.TLSConfig()}
}

// Server is the HTTP API with the resources it owns.
type Server struct {
	Echo  *echo.Echo
	redis *redis.Client
	tasks *asynq.Client
}

// NewServer builds services and the route table.  Redis is optional: when it
// cannot be reached, rate limiting and caching are off and system endpoints
// run seeding inline.
func (c *Core) NewServer() *Server {
	st := service.NewStore(c.DB, c.Dialect)
	ledger := service.NewPointsLedger(st, nil)
	reservations := service.NewReservationService(st, c.Venue, c.Log, nil)
	takeout := service.NewTakeoutService(st, c.Venue, ledger, c.Log, nil)
	gateway := ecpay.NewClient(ecpay.Config{
		MerchantID:    c.Cfg.ECPay.MerchantID,
		HashKey:       c.Cfg.ECPay.HashKey,
		HashIV:        c.Cfg.ECPay.HashIV,
		Mode:          c.Cfg.ECPay.Mode,
		ReturnURL:     c.Cfg.ECPay.ReturnURL,
		ClientBackURL: c.Cfg.ECPay.ClientBackURL,
	})
	payments := service.NewPaymentService(st, c.Venue, takeout, gateway, c.Log, nil)

	srv := &Server{redis: config.NewRedisClient(c.Cfg.Redis)}
	var enq handler.TaskEnqueuer
	if srv.redis == nil {
		c.Log.WithField("addr", c.Cfg.Redis.Addr).Warn("redis unavailable: rate limiting and caching disabled")
	} else {
		srv.tasks = asynq.NewClient(c.RedisOpt())
		enq = jobs.NewEnqueuer(srv.tasks)
	}

	srv.Echo = router.New(router.Handlers{
		Auth:         handler.NewAuthHandler(c.Cfg, st.Users, st.Tokens),
		Reservations: handler.NewReservationHandler(reservations),
		Takeout:      handler.NewTakeoutHandler(takeout, payments),
		Members:      handler.NewMemberHandler(service.NewMemberService(st, ledger)),
		Accounts: handler.NewAccountHandler(service.NewAccountService(st, service.AccountOptions{
			BcryptCost:  c.Cfg.BcryptCost,
			ResetSecret: c.Cfg.JWTResetSecret,
		}, c.Log, nil)),
		System:       handler.NewSystemHandler(enq, c.Seeder()),
	}, router.Options{Config: c.Cfg, DB: c.DB, Redis: srv.redis, Log: c.Log})
	return srv
}

// Close releases redis resources.
func (s *Server) Close() {
	if s.tasks != nil {
		_ = s.tasks.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

// NewRelay returns the outbox relay publishing to the configured broker.
func (c *Core) NewRelay() (*queue.Relay, *queue.Publisher) {
	pub := queue.NewPublisher(c.Cfg.AMQPURL)
	st := service.NewStore(c.DB, c.Dialect)
	return queue.NewRelay(st.Outbox, pub, c.Log), pub
}

// NewNotifier returns the email consumer.  It needs no database.
func (c *Core) NewNotifier() *queue.Consumer {
	n := notify.NewNotifier(
		notify.NewRenderer(c.Venue, c.Cfg.SiteURL),
		notify.NewMailer(c.Cfg.SMTP, c.Log),
		c.Log,
	)
	return queue.NewConsumer(c.Cfg.AMQPURL, n.Handle, c.Log)
}
