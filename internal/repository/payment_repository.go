package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"
    "unicode/utf8"

    "github.com/iliyamo/wild-pasta-booking/internal/database"
    "github.com/iliyamo/wild-pasta-booking/internal/model"
)

// PaymentRepo persists payment requests created before redirecting a
// customer to the gateway.
type PaymentRepo struct {
    db *sql.DB
    d  database.Dialect
}

// NewPaymentRepo returns a PaymentRepo bound to db.
func NewPaymentRepo(db *sql.DB, d database.Dialect) *PaymentRepo { return &PaymentRepo{db: db, d: d} }

const paymentColumns = `id, ord_number, ord_time, user_id, name, phone_number, email, date, start_time, end_time,
    list, count, price, discount, remark, status, trade_no, rtn_code, rtn_msg, updated_at`

// CreateTx inserts a pending payment request within tx.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.PaymentRequest) error {
    const q = `INSERT INTO payment_requests (ord_number, ord_time, user_id, name, phone_number, email, date,
        start_time, end_time, list, count, price, discount, remark, status, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    _, err := tx.ExecContext(ctx, r.d.Rebind(q), p.OrderNumber, p.OrderTime.UTC(), nullString(p.UserID), p.Name,
        p.Phone, p.Email, p.Date, p.StartTime, p.EndTime, p.List, p.Count, p.Price, p.Discount,
        nullString(p.Remark), string(p.Status), p.UpdatedAt.UTC())
    if err != nil {
        if r.d.IsDuplicateKey(err) {
            return ErrDuplicateOrderNumber
        }
        return fmt.Errorf("insert payment request: %w", err)
    }
    return nil
}

// GetByOrderNumber loads a payment request in any state.
func (r *PaymentRepo) GetByOrderNumber(ctx context.Context, ord string) (*model.PaymentRequest, error) {
    q := `SELECT ` + paymentColumns + ` FROM payment_requests WHERE ord_number = ?`
    return scanPayment(r.db.QueryRowContext(ctx, r.d.Rebind(q), ord))
}

// GetPendingForUpdateTx loads and row-locks the request only while it is
// still pending.  ErrNotFound covers both unknown and already-finalized
// requests; the webhook treats both as a no-op.
func (r *PaymentRepo) GetPendingForUpdateTx(ctx context.Context, tx *sql.Tx, ord string) (*model.PaymentRequest, error) {
    q := `SELECT ` + paymentColumns + ` FROM payment_requests WHERE ord_number = ? AND status = ?` + r.d.ForUpdate()
    return scanPayment(tx.QueryRowContext(ctx, r.d.Rebind(q), ord, string(model.PaymentPending)))
}

// FinalizeTx moves a pending request to a terminal status.  Exactly one
// caller can win: the status guard turns the update into a compare-and-swap
// and ErrConflict reports a lost race.
func (r *PaymentRepo) FinalizeTx(ctx context.Context, tx *sql.Tx, ord string, next model.PaymentStatus, tradeNo, rtnCode, rtnMsg string, at time.Time) error {
    if !model.PaymentPending.CanTransition(next) {
        return fmt.Errorf("invalid payment transition to %q", next)
    }
    const q = `UPDATE payment_requests SET status = ?, trade_no = ?, rtn_code = ?, rtn_msg = ?, updated_at = ?
        WHERE ord_number = ? AND status = ?`
    res, err := tx.ExecContext(ctx, r.d.Rebind(q), string(next), nullString(tradeNo), nullString(rtnCode),
        nullString(truncate(rtnMsg, 255)), at.UTC(), ord, string(model.PaymentPending))
    if err != nil {
        return fmt.Errorf("finalize payment request: %w", err)
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

func scanPayment(s rowScanner) (*model.PaymentRequest, error) {
    var (
        p                                        model.PaymentRequest
        userID, remark, tradeNo, rtnCode, rtnMsg sql.NullString
        status                                   string
    )
    err := s.Scan(&p.ID, &p.OrderNumber, &p.OrderTime, &userID, &p.Name, &p.Phone, &p.Email, &p.Date,
        &p.StartTime, &p.EndTime, &p.List, &p.Count, &p.Price, &p.Discount, &remark, &status,
        &tradeNo, &rtnCode, &rtnMsg, &p.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    st, err := model.ParsePaymentStatus(status)
    if err != nil {
        return nil, err
    }
    p.Status = st
    p.UserID, p.Remark = userID.String, remark.String
    p.TradeNo, p.RtnCode, p.RtnMsg = tradeNo.String, rtnCode.String, rtnMsg.String
    p.OrderTime = p.OrderTime.UTC()
    p.UpdatedAt = p.UpdatedAt.UTC()
    return &p, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
    if len(s) <= n {
        return s
    }
    for n > 0 && !utf8.RuneStart(s[n]) {
        n--
    }
    return s[:n]
}
