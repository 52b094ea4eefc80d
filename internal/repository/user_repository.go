package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/wild-pasta-booking/internal/database"
	"github.com/iliyamo/wild-pasta-booking/internal/model"
	"github.com/iliyamo/wild-pasta-booking/internal/utils"
)

type UserRepo struct {
	DB *sql.DB
	d  database.Dialect
}

func NewUserRepo(db *sql.DB, d database.Dialect) *UserRepo { return &UserRepo{DB: db, d: d} }

var (
	ErrEmailExists   = errors.New("email already exists")
	ErrAccountExists = errors.New("account already exists")
)

// NewUser carries registration input.
type NewUser struct {
	Account  string
	Email    string
	Password string
	Name     string
	Phone    string
	Role     string
}

const userColumns = "id,account,email,password_hash,name,phone,role,point,is_active,created_at,updated_at"

// Create inserts user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, in NewUser, cost int) (string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	account := strings.TrimSpace(in.Account)
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = r.DB.ExecContext(ctx, r.d.Rebind(
		"INSERT INTO users (id,account,email,password_hash,name,phone,role,point,is_active,created_at,updated_at) VALUES (?,?,?,?,?,?,?,0,?,?,?)"),
		id, account, email, hash, in.Name, nullString(in.Phone), in.Role, true, now, now)
	if err != nil {
		if r.d.IsDuplicateKey(err) {
			if _, e := r.GetByAccount(ctx, account); e == nil {
				return "", ErrAccountExists
			}
			return "", ErrEmailExists
		}
		return "", err
	}
	return id, nil
}

// GetByAccount fetches a user by login name.
func (r *UserRepo) GetByAccount(ctx context.Context, account string) (model.User, error) {
	return r.getOne(ctx, "account=?", strings.TrimSpace(account))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.getOne(ctx, "id=?", id)
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (model.User, error) {
	var u model.User
	var phone sql.NullString
	err := r.DB.QueryRowContext(ctx, r.d.Rebind("SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1"), arg).
		Scan(&u.ID, &u.Account, &u.Email, &u.PasswordHash, &u.Name, &phone, &u.Role, &u.Point, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	u.Phone = phone.String
	return u, err
}

// GetPointsTx reads the balance inside tx.
func (r *UserRepo) GetPointsTx(ctx context.Context, tx *sql.Tx, id string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, r.d.Rebind("SELECT point FROM users WHERE id=?"), id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return n, err
}

// AddPointsTx credits n points.
func (r *UserRepo) AddPointsTx(ctx context.Context, tx *sql.Tx, id string, n int, at time.Time) error {
	res, err := tx.ExecContext(ctx, r.d.Rebind("UPDATE users SET point = point + ?, updated_at = ? WHERE id = ?"), n, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("credit points: %w", err)
	}
	if k, _ := res.RowsAffected(); k == 0 {
		return ErrNotFound
	}
	return nil
}

// SpendPointsTx debits n points only if the balance covers them.
func (r *UserRepo) SpendPointsTx(ctx context.Context, tx *sql.Tx, id string, n int, at time.Time) error {
	res, err := tx.ExecContext(ctx, r.d.Rebind("UPDATE users SET point = point - ?, updated_at = ? WHERE id = ? AND point >= ?"),
		n, at.UTC(), id, n)
	if err != nil {
		return fmt.Errorf("debit points: %w", err)
	}
	if k, _ := res.RowsAffected(); k == 0 {
		if _, err := r.GetPointsTx(ctx, tx, id); err != nil {
			return err
		}
		return ErrInsufficientPoints
	}
	return nil
}

// ReversePointsTx debits n points, clamping the balance at zero.
func (r *UserRepo) ReversePointsTx(ctx context.Context, tx *sql.Tx, id string, n int, at time.Time) error {
	_, err := tx.ExecContext(ctx, r.d.Rebind(
		"UPDATE users SET point = CASE WHEN point >= ? THEN point - ? ELSE 0 END, updated_at = ? WHERE id = ?"),
		n, n, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("reverse points: %w", err)
	}
	return nil
}

// EmailTakenTx reports whether any member already uses email.
func (r *UserRepo) EmailTakenTx(ctx context.Context, tx *sql.Tx, email string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, r.d.Rebind("SELECT COUNT(*) FROM users WHERE email=?"), email).Scan(&n)
	return n > 0, err
}

// UpdateEmailTx replaces the login email.  A collision with another member
// yields ErrEmailExists.
func (r *UserRepo) UpdateEmailTx(ctx context.Context, tx *sql.Tx, id, email string, at time.Time) error {
	err := r.setColumn(ctx, tx, id, "email", strings.ToLower(strings.TrimSpace(email)), at)
	if r.d.IsDuplicateKey(err) {
		return ErrEmailExists
	}
	return err
}

// UpdatePhone sets the contact phone; an empty phone clears it.
func (r *UserRepo) UpdatePhone(ctx context.Context, id, phone string, at time.Time) error {
	return r.setColumn(ctx, r.DB, id, "phone", nullString(phone), at)
}

// UpdateName sets the display name.
func (r *UserRepo) UpdateName(ctx context.Context, id, name string, at time.Time) error {
	return r.setColumn(ctx, r.DB, id, "name", name, at)
}

// UpdatePasswordTx stores a new bcrypt hash of password.
func (r *UserRepo) UpdatePasswordTx(ctx context.Context, tx *sql.Tx, id, password string, cost int, at time.Time) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	return r.setColumn(ctx, tx, id, "password_hash", hash, at)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// setColumn writes one column of users; col is never caller input.
func (r *UserRepo) setColumn(ctx context.Context, ex execer, id, col string, val any, at time.Time) error {
	res, err := ex.ExecContext(ctx, r.d.Rebind("UPDATE users SET "+col+" = ?, updated_at = ? WHERE id = ?"), val, at.UTC(), id)
	if err != nil {
		return err
	}
	if k, _ := res.RowsAffected(); k == 0 {
		return ErrNotFound
	}
	return nil
}
