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

// VerificationRepo stores the short-lived codes behind email changes and
// password resets.
type VerificationRepo struct {
    db *sql.DB
    d  database.Dialect
}

// NewVerificationRepo returns a VerificationRepo bound to db.
func NewVerificationRepo(db *sql.DB, d database.Dialect) *VerificationRepo {
    return &VerificationRepo{db: db, d: d}
}

const verificationColumns = "id,user_id,purpose,email,code,attempts,expires_at,created_at"

// PendingTx reports whether an unexpired code of purpose was already sent to
// email.
func (r *VerificationRepo) PendingTx(ctx context.Context, tx *sql.Tx, purpose, email string, now time.Time) (bool, error) {
    q := r.d.Rebind(`SELECT COUNT(*) FROM verification_codes WHERE purpose = ? AND email = ? AND expires_at > ?`)
    var n int
    if err := tx.QueryRowContext(ctx, q, purpose, email, now.UTC()).Scan(&n); err != nil {
        return false, fmt.Errorf("count pending codes: %w", err)
    }
    return n > 0, nil
}

// CreateTx stores v.
func (r *VerificationRepo) CreateTx(ctx context.Context, tx *sql.Tx, v model.VerificationCode) error {
    q := r.d.Rebind(`INSERT INTO verification_codes (user_id,purpose,email,code,attempts,expires_at,created_at) VALUES (?,?,?,?,0,?,?)`)
    if _, err := tx.ExecContext(ctx, q, v.UserID, v.Purpose, v.Email, v.Code, v.ExpiresAt.UTC(), v.CreatedAt.UTC()); err != nil {
        return fmt.Errorf("insert verification code: %w", err)
    }
    return nil
}

// LatestForUpdateTx loads and row-locks the newest code a member received
// for purpose at email.
func (r *VerificationRepo) LatestForUpdateTx(ctx context.Context, tx *sql.Tx, userID, purpose, email string) (*model.VerificationCode, error) {
    q := `SELECT ` + verificationColumns + ` FROM verification_codes WHERE user_id = ? AND purpose = ? AND email = ?` +
        ` ORDER BY created_at DESC, id DESC LIMIT 1` + r.d.ForUpdate()
    var v model.VerificationCode
    err := tx.QueryRowContext(ctx, r.d.Rebind(q), userID, purpose, email).
        Scan(&v.ID, &v.UserID, &v.Purpose, &v.Email, &v.Code, &v.Attempts, &v.ExpiresAt, &v.CreatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return &v, nil
}

// BumpAttemptsTx records a wrong guess against code id.
func (r *VerificationRepo) BumpAttemptsTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    _, err := tx.ExecContext(ctx, r.d.Rebind(`UPDATE verification_codes SET attempts = attempts + 1 WHERE id = ?`), id)
    return err
}

// ClearTx deletes every code a member holds for purpose.
func (r *VerificationRepo) ClearTx(ctx context.Context, tx *sql.Tx, userID, purpose string) error {
    _, err := tx.ExecContext(ctx, r.d.Rebind(`DELETE FROM verification_codes WHERE user_id = ? AND purpose = ?`), userID, purpose)
    return err
}
