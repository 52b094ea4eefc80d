package repository

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/iliyamo/wild-pasta-booking/internal/database"
)

// OrderNumberRepo is the registry every order number passes through before
// it is written to reservations, takeouts or payment_requests.  A takeout
// and the payment request that later becomes one share a number, so
// uniqueness per table is not enough.
type OrderNumberRepo struct {
    db *sql.DB
    d  database.Dialect
}

// NewOrderNumberRepo returns an OrderNumberRepo bound to db.
func NewOrderNumberRepo(db *sql.DB, d database.Dialect) *OrderNumberRepo {
    return &OrderNumberRepo{db: db, d: d}
}

// ClaimTx registers ord inside tx.  ErrDuplicateOrderNumber means another
// order of any kind already holds it.
func (r *OrderNumberRepo) ClaimTx(ctx context.Context, tx *sql.Tx, ord, kind string, at time.Time) error {
    const q = `INSERT INTO order_numbers (ord_number, kind, created_at) VALUES (?, ?, ?)`
    if _, err := tx.ExecContext(ctx, r.d.Rebind(q), ord, kind, at.UTC()); err != nil {
        if r.d.IsDuplicateKey(err) {
            return ErrDuplicateOrderNumber
        }
        return fmt.Errorf("claim order number: %w", err)
    }
    return nil
}
