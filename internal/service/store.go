package service

import (
	"context"
	"database/sql"

	"github.com/iliyamo/wild-pasta-booking/internal/database"
	"github.com/iliyamo/wild-pasta-booking/internal/repository"
)

// Store bundles the repositories the services share with the pool they run
// transactions on.
type Store struct {
	DB           *sql.DB
	Dialect      database.Dialect
	Slots        *repository.SlotRepo
	Reservations *repository.ReservationRepo
	Takeouts     *repository.TakeoutRepo
	Payments     *repository.PaymentRepo
	Points       *repository.PointsRepo
	Users        *repository.UserRepo
	Tokens       *repository.TokenRepo
	Outbox       *repository.OutboxRepo
	OrderNumbers *repository.OrderNumberRepo
	Codes        *repository.VerificationRepo
	Contacts     *repository.ContactRepo
}

// NewStore wires every repository to db.
func NewStore(db *sql.DB, d database.Dialect) *Store {
	return &Store{
		DB:           db,
		Dialect:      d,
		Slots:        repository.NewSlotRepo(db, d),
		Reservations: repository.NewReservationRepo(db, d),
		Takeouts:     repository.NewTakeoutRepo(db, d),
		Payments:     repository.NewPaymentRepo(db, d),
		Points:       repository.NewPointsRepo(db, d),
		Users:        repository.NewUserRepo(db, d),
		Tokens:       repository.NewTokenRepo(db, d),
		Outbox:       repository.NewOutboxRepo(db, d),
		OrderNumbers: repository.NewOrderNumberRepo(db, d),
		Codes:        repository.NewVerificationRepo(db, d),
		Contacts:     repository.NewContactRepo(db, d),
	}
}

func (s *Store) begin(ctx context.Context) (*sql.Tx, error) {
	return s.DB.BeginTx(ctx, s.Dialect.TxOptions())
}
