package repository

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/iliyamo/wild-pasta-booking/internal/database"
    "github.com/iliyamo/wild-pasta-booking/internal/model"
)

// PointsRepo appends to and reads the points ledger.  There is no update or
// delete: corrections are new entries.
type PointsRepo struct {
    db *sql.DB
    d  database.Dialect
}

// NewPointsRepo returns a PointsRepo bound to db.
func NewPointsRepo(db *sql.DB, d database.Dialect) *PointsRepo { return &PointsRepo{db: db, d: d} }

// AppendTx writes one ledger entry inside tx.
func (r *PointsRepo) AppendTx(ctx context.Context, tx *sql.Tx, e *model.PointsEntry) error {
    const q = `INSERT INTO points (user_id, ord_number, ord_time, point, action, create_time) VALUES (?, ?, ?, ?, ?, ?)`
    if _, err := tx.ExecContext(ctx, r.d.Rebind(q), e.UserID, e.OrderNumber, e.OrderTime.UTC(), e.Points,
        string(e.Action), e.CreatedAt.UTC()); err != nil {
        return fmt.Errorf("append points entry: %w", err)
    }
    return nil
}

// ListByUser returns a member's entries newest first.
func (r *PointsRepo) ListByUser(ctx context.Context, userID string, page, size int) ([]model.PointsEntry, int, error) {
    limit, offset := pageBounds(page, size)
    var total int
    if err := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT COUNT(*) FROM points WHERE user_id = ?`), userID).Scan(&total); err != nil {
        return nil, 0, err
    }
    const q = `SELECT id, user_id, ord_number, ord_time, point, action, create_time FROM points
        WHERE user_id = ? ORDER BY create_time DESC, id DESC LIMIT ? OFFSET ?`
    rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), userID, limit, offset)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()
    var out []model.PointsEntry
    for rows.Next() {
        var e model.PointsEntry
        var action string
        if err := rows.Scan(&e.ID, &e.UserID, &e.OrderNumber, &e.OrderTime, &e.Points, &action, &e.CreatedAt); err != nil {
            return nil, 0, err
        }
        e.Action = model.PointsAction(action)
        e.OrderTime, e.CreatedAt = e.OrderTime.UTC(), e.CreatedAt.UTC()
        out = append(out, e)
    }
    return out, total, rows.Err()
}

// ListByOrder returns every entry written for ord, oldest first.
func (r *PointsRepo) ListByOrder(ctx context.Context, ord string) ([]model.PointsEntry, error) {
    const q = `SELECT id, user_id, ord_number, ord_time, point, action, create_time FROM points
        WHERE ord_number = ? ORDER BY id`
    rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), ord)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.PointsEntry
    for rows.Next() {
        var e model.PointsEntry
        var action string
        if err := rows.Scan(&e.ID, &e.UserID, &e.OrderNumber, &e.OrderTime, &e.Points, &action, &e.CreatedAt); err != nil {
            return nil, err
        }
        e.Action = model.PointsAction(action)
        out = append(out, e)
    }
    return out, rows.Err()
}
