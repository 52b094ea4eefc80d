package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/wild-pasta-booking/internal/config"
	"github.com/iliyamo/wild-pasta-booking/internal/database"
	"github.com/iliyamo/wild-pasta-booking/internal/logging"
	"github.com/iliyamo/wild-pasta-booking/internal/model"
	"github.com/iliyamo/wild-pasta-booking/internal/payment/ecpay"
	"github.com/iliyamo/wild-pasta-booking/internal/repository"
)

const (
	today       = "2025-06-01"
	tomorrow    = "2025-06-02"
	resetSecret = "reset-secret"
)

type fixture struct {
	t            *testing.T
	ctx          context.Context
	store        *Store
	venue        *config.Venue
	now          time.Time
	ledger       *PointsLedger
	reservations *ReservationService
	takeout      *TakeoutService
	payments     *PaymentService
	accounts     *AccountService
	gateway      *ecpay.Client
}

// newFixture opens a fresh SQLite database with the clock at 10:00 on
// 2025-06-01 in the venue time zone.
func newFixture(t *testing.T, tweak ...func(*config.Venue)) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "wildpasta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))
	return newFixtureOn(t, db, database.SQLite, tweak...)
}

// newFixtureOn builds the services over an already migrated database.
func newFixtureOn(t *testing.T, db *sql.DB, d database.Dialect, tweak ...func(*config.Venue)) *fixture {
	t.Helper()
	ctx := context.Background()
	v := config.DefaultVenue()
	for _, fn := range tweak {
		fn(v)
	}
	f := &fixture{t: t, ctx: ctx, store: NewStore(db, d), venue: v}
	f.now = f.at(today, "10:00")
	clock := func() time.Time { return f.now }
	log := logging.Discard()
	f.gateway = ecpay.NewClient(ecpay.Config{
		MerchantID: "3002607",
		HashKey:    "pwFHCqoQZGmho4w6",
		HashIV:     "EkRm7iFT261dpevs",
		Mode:       "Test",
		ReturnURL:  "https://api.example.test/v1/takeout/ecpay/return",
	})
	f.ledger = NewPointsLedger(f.store, clock)
	f.reservations = NewReservationService(f.store, v, log, clock)
	f.takeout = NewTakeoutService(f.store, v, f.ledger, log, clock)
	f.payments = NewPaymentService(f.store, v, f.takeout, f.gateway, log, clock)
	f.accounts = NewAccountService(f.store, AccountOptions{BcryptCost: 4, ResetSecret: resetSecret}, log, clock)
	return f
}

// at returns date+clock in the venue time zone as UTC.
func (f *fixture) at(date, clock string) time.Time {
	ts, err := f.venue.At(date, clock)
	require.NoError(f.t, err)
	return ts.UTC()
}

func (f *fixture) addMember(account string, points int) string {
	f.t.Helper()
	id, err := f.store.Users.Create(f.ctx, repository.NewUser{
		Account:  account,
		Email:    account + "@example.com",
		Password: "pasta1234",
		Name:     "Member " + account,
		Phone:    "0912345678",
		Role:     "CUSTOMER",
	}, 4)
	require.NoError(f.t, err)
	if points > 0 {
		_, err = f.store.DB.Exec(f.store.Dialect.Rebind(`UPDATE users SET point = ? WHERE id = ?`), points, id)
		require.NoError(f.t, err)
	}
	return id
}

func (f *fixture) balance(userID string) int {
	f.t.Helper()
	u, err := f.store.Users.GetByID(f.ctx, userID)
	require.NoError(f.t, err)
	return u.Point
}

func (f *fixture) seedReservationSlots(date string) {
	f.t.Helper()
	tx, err := f.store.DB.Begin()
	require.NoError(f.t, err)
	require.NoError(f.t, f.store.Slots.InsertReservationSlotsTx(f.ctx, tx, date, f.venue.Reservation.Slots, f.venue.Reservation.Ceiling))
	require.NoError(f.t, tx.Commit())
}

func (f *fixture) seedTakeoutSlots(date string) {
	f.t.Helper()
	tx, err := f.store.DB.Begin()
	require.NoError(f.t, err)
	require.NoError(f.t, f.store.Slots.ResetTakeoutTx(f.ctx, tx, date, f.venue.Takeout.Slots, f.venue.Takeout.Ceiling))
	require.NoError(f.t, tx.Commit())
}

func (f *fixture) takeoutRemaining(date, slot string) int {
	f.t.Helper()
	slots, err := f.store.Slots.ListTakeoutSlots(f.ctx, date)
	require.NoError(f.t, err)
	for _, s := range slots {
		if s.Time == slot {
			return s.MaxCapacity
		}
	}
	f.t.Fatalf("takeout slot %s %s not found", date, slot)
	return 0
}

func (f *fixture) ledgerFor(ord string) []model.PointsEntry {
	f.t.Helper()
	rows, err := f.store.Points.ListByOrder(f.ctx, ord)
	require.NoError(f.t, err)
	return rows
}

func reservationInput(date, clock string, people int) ReservationInput {
	return ReservationInput{
		Name:   "小明",
		Phone:  "0912345678",
		Email:  "ming@example.com",
		Date:   date,
		Time:   clock,
		People: people,
		Theme:  "family",
	}
}

// takeoutInput orders count units of pastaA at slot on today.
func takeoutInput(slot string, count, price, discount int) TakeoutInput {
	start, _ := config.ClockMinutes(slot)
	return TakeoutInput{
		Name:      "小華",
		Phone:     "0987654321",
		Email:     "hua@example.com",
		Date:      today,
		StartTime: slot,
		EndTime:   config.ClockString(start + 30),
		List:      "pastaA_" + strconv.Itoa(count),
		Count:     count,
		Price:     price,
		Discount:  discount,
	}
}
