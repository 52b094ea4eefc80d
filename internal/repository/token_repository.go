package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/wild-pasta-booking/internal/database"
)

// TokenRepo persists/validates refresh tokens (single 'token_hash' column).
type TokenRepo struct {
	DB *sql.DB
	d  database.Dialect
}

func NewTokenRepo(db *sql.DB, d database.Dialect) *TokenRepo { return &TokenRepo{DB: db, d: d} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID string, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx, r.d.Rebind(
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at) VALUES (?,?,?,?)"),
		userID, tokenHash, exp.UTC(), time.Now().UTC())
	return err
}

// ValidateRefresh returns userID if a non-revoked, non-expired token exists.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (string, error) {
	var (
		userID    string
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, r.d.Rebind(
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1"),
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		return "", err
	}
	if revokedAt.Valid {
		return "", sql.ErrNoRows
	}
	if time.Now().UTC().After(expiresAt) {
		return "", sql.ErrNoRows
	}
	return userID, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx, r.d.Rebind(
		"UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL"),
		time.Now().UTC(), tokenHash)
	return err
}

// RevokeAllForUser revokes all user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx, r.d.Rebind(
		"UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL"),
		time.Now().UTC(), userID)
	return err
}
