package repository

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/iliyamo/wild-pasta-booking/internal/database"
    "github.com/iliyamo/wild-pasta-booking/internal/model"
)

// ContactRepo stores contact form messages.
type ContactRepo struct {
    db *sql.DB
    d  database.Dialect
}

func NewContactRepo(db *sql.DB, d database.Dialect) *ContactRepo { return &ContactRepo{db: db, d: d} }

// Create stores m.
func (r *ContactRepo) Create(ctx context.Context, m model.ContactMessage) error {
    q := r.d.Rebind(`INSERT INTO contacts (name,phone_number,email,msg,created_at) VALUES (?,?,?,?,?)`)
    if _, err := r.db.ExecContext(ctx, q, m.Name, m.Phone, m.Email, m.Msg, m.CreatedAt.UTC()); err != nil {
        return fmt.Errorf("insert contact: %w", err)
    }
    return nil
}
