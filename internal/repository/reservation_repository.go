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

// ReservationRepo persists dine-in reservations.  Rows are never deleted;
// cancellation flips status and stamps cancel_time.  All timestamps are UTC.
type ReservationRepo struct {
    db *sql.DB
    d  database.Dialect
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB, d database.Dialect) *ReservationRepo {
    return &ReservationRepo{db: db, d: d}
}

const reservationColumns = `id, ord_number, ord_time, user_id, name, phone_number, email, date, time, people,
    theme, remark, food_allergy, status, cancel_token, cancel_deadline, cancel_time`

// CreateTx inserts a reservation within the caller's transaction and fills
// in its generated ID.  A collision on order number or cancel token yields
// ErrDuplicateOrderNumber.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
    const q = `INSERT INTO reservations (ord_number, ord_time, user_id, name, phone_number, email, date, time, people,
        theme, remark, food_allergy, status, cancel_token, cancel_deadline)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    args := []any{res.OrderNumber, res.OrderTime.UTC(), res.UserID, res.Name, res.Phone, nullString(res.Email),
        res.Date, res.Time, res.People, nullString(res.Theme), nullString(res.Remark), nullString(res.FoodAllergy),
        string(res.Status), res.CancelToken, res.CancelDeadline.UTC()}
    if _, err := tx.ExecContext(ctx, r.d.Rebind(q), args...); err != nil {
        if r.d.IsDuplicateKey(err) {
            return ErrDuplicateOrderNumber
        }
        return fmt.Errorf("insert reservation: %w", err)
    }
    err := tx.QueryRowContext(ctx, r.d.Rebind(`SELECT id FROM reservations WHERE ord_number = ?`), res.OrderNumber).Scan(&res.ID)
    if err != nil {
        return fmt.Errorf("read back reservation id: %w", err)
    }
    return nil
}

// SumPartyTx returns the party size of all active reservations on date that
// start at one of starts.
func (r *ReservationRepo) SumPartyTx(ctx context.Context, tx *sql.Tx, date string, starts []string) (int, error) {
    if len(starts) == 0 {
        return 0, nil
    }
    q := `SELECT COALESCE(SUM(people), 0) FROM reservations WHERE date = ? AND status = ? AND time IN (` +
        inPlaceholders(len(starts)) + `)`
    args := make([]any, 0, len(starts)+2)
    args = append(args, date, string(model.OrderActive))
    for _, s := range starts {
        args = append(args, s)
    }
    var sum int
    if err := tx.QueryRowContext(ctx, r.d.Rebind(q), args...).Scan(&sum); err != nil {
        return 0, err
    }
    return sum, nil
}

// PartyByStart returns, for date, the active party size grouped by start time.
func (r *ReservationRepo) PartyByStart(ctx context.Context, date string) (map[string]int, error) {
    q := r.d.Rebind(`SELECT time, COALESCE(SUM(people), 0) FROM reservations WHERE date = ? AND status = ? GROUP BY time`)
    rows, err := r.db.QueryContext(ctx, q, date, string(model.OrderActive))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := map[string]int{}
    for rows.Next() {
        var t string
        var n int
        if err := rows.Scan(&t, &n); err != nil {
            return nil, err
        }
        out[t] = n
    }
    return out, rows.Err()
}

// GetByOrderNumberForUpdateTx loads and row-locks a reservation.
func (r *ReservationRepo) GetByOrderNumberForUpdateTx(ctx context.Context, tx *sql.Tx, ord string) (*model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations WHERE ord_number = ?` + r.d.ForUpdate()
    return scanReservation(tx.QueryRowContext(ctx, r.d.Rebind(q), ord))
}

// GetByCancelTokenForUpdateTx loads and row-locks the reservation owning token.
func (r *ReservationRepo) GetByCancelTokenForUpdateTx(ctx context.Context, tx *sql.Tx, token string) (*model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations WHERE cancel_token = ?` + r.d.ForUpdate()
    return scanReservation(tx.QueryRowContext(ctx, r.d.Rebind(q), token))
}

// GetByOrderNumber loads a reservation without locking.
func (r *ReservationRepo) GetByOrderNumber(ctx context.Context, ord string) (*model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations WHERE ord_number = ?`
    return scanReservation(r.db.QueryRowContext(ctx, r.d.Rebind(q), ord))
}

// CancelTx moves an active reservation to cancelled.  The status guard in
// the WHERE clause makes the update a compare-and-swap: ErrConflict means
// another request already cancelled it.
func (r *ReservationRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
    const q = `UPDATE reservations SET status = ?, cancel_time = ? WHERE id = ? AND status = ?`
    res, err := tx.ExecContext(ctx, r.d.Rebind(q), string(model.OrderCancelled), at.UTC(), id, string(model.OrderActive))
    if err != nil {
        return fmt.Errorf("cancel reservation: %w", err)
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

// ListByUser returns a member's reservations, newest service date first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID string, page, size int) ([]model.Reservation, int, error) {
    limit, offset := pageBounds(page, size)
    var total int
    if err := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT COUNT(*) FROM reservations WHERE user_id = ?`), userID).Scan(&total); err != nil {
        return nil, 0, err
    }
    q := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = ? ORDER BY date DESC, time DESC LIMIT ? OFFSET ?`
    rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), userID, limit, offset)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()
    var out []model.Reservation
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, 0, err
        }
        out = append(out, *res)
    }
    return out, total, rows.Err()
}

func scanReservation(s rowScanner) (*model.Reservation, error) {
    var (
        res                           model.Reservation
        email, theme, remark, allergy sql.NullString
        status                        string
        cancelTime                    sql.NullTime
    )
    err := s.Scan(&res.ID, &res.OrderNumber, &res.OrderTime, &res.UserID, &res.Name, &res.Phone, &email,
        &res.Date, &res.Time, &res.People, &theme, &remark, &allergy, &status, &res.CancelToken,
        &res.CancelDeadline, &cancelTime)
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
    res.Status = st
    res.Email, res.Theme, res.Remark, res.FoodAllergy = email.String, theme.String, remark.String, allergy.String
    res.OrderTime = res.OrderTime.UTC()
    res.CancelDeadline = res.CancelDeadline.UTC()
    res.CancelTime = timePtr(cancelTime)
    return &res, nil
}
