package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "github.com/iliyamo/wild-pasta-booking/internal/database"
    "github.com/iliyamo/wild-pasta-booking/internal/model"
)

// TakeoutRepo persists takeout orders.  Like reservations they are never
// deleted, only cancelled.
type TakeoutRepo struct {
    db *sql.DB
    d  database.Dialect
}

// NewTakeoutRepo returns a TakeoutRepo bound to db.
func NewTakeoutRepo(db *sql.DB, d database.Dialect) *TakeoutRepo { return &TakeoutRepo{db: db, d: d} }

const takeoutColumns = `id, ord_number, ord_time, user_id, name, phone_number, email, date, start_time, end_time,
    list, count, price, discount, point, remark, paid, status, cancel_token, cancel_deadline, cancel_time`

// CreateTx inserts a takeout order within tx.
func (r *TakeoutRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.TakeoutOrder) error {
    const q = `INSERT INTO takeouts (ord_number, ord_time, user_id, name, phone_number, email, date, start_time, end_time,
        list, count, price, discount, point, remark, paid, status, cancel_token, cancel_deadline)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    args := []any{o.OrderNumber, o.OrderTime.UTC(), nullString(o.UserID), o.Name, o.Phone, o.Email, o.Date,
        o.StartTime, o.EndTime, o.List, o.Count, o.Price, o.Discount, o.PointsEarned, nullString(o.Remark),
        o.Paid, string(o.Status), o.CancelToken, o.CancelDeadline.UTC()}
    if _, err := tx.ExecContext(ctx, r.d.Rebind(q), args...); err != nil {
        if r.d.IsDuplicateKey(err) {
            return ErrDuplicateOrderNumber
        }
        return fmt.Errorf("insert takeout: %w", err)
    }
    err := tx.QueryRowContext(ctx, r.d.Rebind(`SELECT id FROM takeouts WHERE ord_number = ?`), o.OrderNumber).Scan(&o.ID)
    if err != nil {
        return fmt.Errorf("read back takeout id: %w", err)
    }
    return nil
}

// GetByOrderNumberForUpdateTx loads and row-locks a takeout order.
func (r *TakeoutRepo) GetByOrderNumberForUpdateTx(ctx context.Context, tx *sql.Tx, ord string) (*model.TakeoutOrder, error) {
    q := `SELECT ` + takeoutColumns + ` FROM takeouts WHERE ord_number = ?` + r.d.ForUpdate()
    return scanTakeout(tx.QueryRowContext(ctx, r.d.Rebind(q), ord))
}

// GetByCancelTokenForUpdateTx loads and row-locks the order owning token.
func (r *TakeoutRepo) GetByCancelTokenForUpdateTx(ctx context.Context, tx *sql.Tx, token string) (*model.TakeoutOrder, error) {
    q := `SELECT ` + takeoutColumns + ` FROM takeouts WHERE cancel_token = ?` + r.d.ForUpdate()
    return scanTakeout(tx.QueryRowContext(ctx, r.d.Rebind(q), token))
}

// GetByOrderNumber loads an order without locking.
func (r *TakeoutRepo) GetByOrderNumber(ctx context.Context, ord string) (*model.TakeoutOrder, error) {
    q := `SELECT ` + takeoutColumns + ` FROM takeouts WHERE ord_number = ?`
    return scanTakeout(r.db.QueryRowContext(ctx, r.d.Rebind(q), ord))
}

// CountByOrderNumber reports how many takeout rows carry ord.  Used to
// verify webhook idempotence.
func (r *TakeoutRepo) CountByOrderNumber(ctx context.Context, ord string) (int, error) {
    var n int
    err := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT COUNT(*) FROM takeouts WHERE ord_number = ?`), ord).Scan(&n)
    return n, err
}

// CancelTx moves an active order to cancelled (compare-and-swap on status).
func (r *TakeoutRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
    const q = `UPDATE takeouts SET status = ?, cancel_time = ? WHERE id = ? AND status = ?`
    res, err := tx.ExecContext(ctx, r.d.Rebind(q), string(model.OrderCancelled), at.UTC(), id, string(model.OrderActive))
    if err != nil {
        return fmt.Errorf("cancel takeout: %w", err)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return nil
}

// ListActiveByUser returns a member's active takeout orders, soonest first.
func (r *TakeoutRepo) ListActiveByUser(ctx context.Context, userID string, page, size int) ([]model.TakeoutOrder, int, error) {
    limit, offset := pageBounds(page, size)
    active := string(model.OrderActive)
    var total int
    err := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT COUNT(*) FROM takeouts WHERE user_id = ? AND status = ?`),
        userID, active).Scan(&total)
    if err != nil {
        return nil, 0, err
    }
    q := `SELECT ` + takeoutColumns + ` FROM takeouts WHERE user_id = ? AND status = ?
        ORDER BY date, start_time LIMIT ? OFFSET ?`
    rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), userID, active, limit, offset)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()
    var out []model.TakeoutOrder
    for rows.Next() {
        o, err := scanTakeout(rows)
        if err != nil {
            return nil, 0, err
        }
        out = append(out, *o)
    }
    return out, total, rows.Err()
}

func scanTakeout(s rowScanner) (*model.TakeoutOrder, error) {
    var (
        o              model.TakeoutOrder
        userID, remark sql.NullString
        status         string
        cancelTime     sql.NullTime
    )
    err := s.Scan(&o.ID, &o.OrderNumber, &o.OrderTime, &userID, &o.Name, &o.Phone, &o.Email, &o.Date,
        &o.StartTime, &o.EndTime, &o.List, &o.Count, &o.Price, &o.Discount, &o.PointsEarned, &remark,
        &o.Paid, &status, &o.CancelToken, &o.CancelDeadline, &cancelTime)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    st, err := model.ParseOrderStatus(status)
    if err != nil {
        return nil, err
    }
    o.Status = st
    o.UserID, o.Remark = userID.String, remark.String
    o.OrderTime = o.OrderTime.UTC()
    o.CancelDeadline = o.CancelDeadline.UTC()
    o.CancelTime = timePtr(cancelTime)
    return &o, nil
}
