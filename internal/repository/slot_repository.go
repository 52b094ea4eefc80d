package repository

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/iliyamo/wild-pasta-booking/internal/database"
    "github.com/iliyamo/wild-pasta-booking/internal/model"
)

// SlotRepo stores the two capacity pools: reservation_slots (fixed ceilings
// consumed by overlapping bookings) and takeout_slots (a remaining counter
// decremented as orders are placed).
type SlotRepo struct {
    db *sql.DB
    d  database.Dialect
}

// NewSlotRepo returns a SlotRepo bound to db.
func NewSlotRepo(db *sql.DB, d database.Dialect) *SlotRepo { return &SlotRepo{db: db, d: d} }

// DB exposes the underlying pool so services can open transactions.
func (r *SlotRepo) DB() *sql.DB { return r.db }

// Dialect exposes the SQL dialect in use.
func (r *SlotRepo) Dialect() database.Dialect { return r.d }

// ListReservationSlots returns the ceilings of every reservation slot on date.
func (r *SlotRepo) ListReservationSlots(ctx context.Context, date string) ([]model.SlotCapacity, error) {
    q := r.d.Rebind(`SELECT date, time, max_capacity FROM reservation_slots WHERE date = ? ORDER BY time`)
    return r.listSlots(ctx, q, date)
}

// ListTakeoutSlots returns the remaining capacity of every takeout slot on date.
func (r *SlotRepo) ListTakeoutSlots(ctx context.Context, date string) ([]model.SlotCapacity, error) {
    q := r.d.Rebind(`SELECT date, time_slot, max_capacity FROM takeout_slots WHERE date = ? ORDER BY time_slot`)
    return r.listSlots(ctx, q, date)
}

func (r *SlotRepo) listSlots(ctx context.Context, q, date string) ([]model.SlotCapacity, error) {
    rows, err := r.db.QueryContext(ctx, q, date)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.SlotCapacity
    for rows.Next() {
        var s model.SlotCapacity
        if err := rows.Scan(&s.Date, &s.Time, &s.MaxCapacity); err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

// lockSlotsQuery selects n reservation slots of one date in time order,
// holding row locks on dialects that support them.
func lockSlotsQuery(d database.Dialect, n int) string {
    return d.Rebind(`SELECT time, max_capacity FROM reservation_slots WHERE date = ? AND time IN (` +
        inPlaceholders(n) + `) ORDER BY time` + d.ForUpdate())
}

// LockReservationSlotsTx row-locks the given reservation slots of date, in
// time order so that concurrent bookings acquire locks in the same order,
// and returns their ceilings keyed by time.  Missing slots are absent from
// the map.
func (r *SlotRepo) LockReservationSlotsTx(ctx context.Context, tx *sql.Tx, date string, times []string) (map[string]int, error) {
    out := make(map[string]int, len(times))
    if len(times) == 0 {
        return out, nil
    }
    q := lockSlotsQuery(r.d, len(times))
    args := make([]any, 0, len(times)+1)
    args = append(args, date)
    for _, t := range times {
        args = append(args, t)
    }
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var t string
        var c int
        if err := rows.Scan(&t, &c); err != nil {
            return nil, err
        }
        out[t] = c
    }
    return out, rows.Err()
}

// CountReservationSlots returns how many slot rows exist for date.
func (r *SlotRepo) CountReservationSlots(ctx context.Context, date string) (int, error) {
    var n int
    err := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT COUNT(*) FROM reservation_slots WHERE date = ?`), date).Scan(&n)
    return n, err
}

// InsertReservationSlotsTx adds the given slots for date at ceiling.  Rows
// that already exist are left untouched.
func (r *SlotRepo) InsertReservationSlotsTx(ctx context.Context, tx *sql.Tx, date string, times []string, ceiling int) error {
    if len(times) == 0 {
        return nil
    }
    prefix, suffix := r.d.InsertIgnore()
    query := prefix + ` reservation_slots (date, time, max_capacity) VALUES `
    args := make([]any, 0, len(times)*3)
    for i, t := range times {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?)"
        args = append(args, date, t, ceiling)
    }
    _, err := tx.ExecContext(ctx, r.d.Rebind(query+suffix), args...)
    return err
}

// DeleteReservationSlotsBefore drops slot rows for dates strictly before date.
func (r *SlotRepo) DeleteReservationSlotsBefore(ctx context.Context, date string) (int64, error) {
    res, err := r.db.ExecContext(ctx, r.d.Rebind(`DELETE FROM reservation_slots WHERE date < ?`), date)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// TryReserveTakeoutTx decrements the remaining capacity of a takeout slot by
// count in a single conditional statement.  It returns ErrSlotFull when the
// slot is missing or holds less than count; in that case nothing changed.
func (r *SlotRepo) TryReserveTakeoutTx(ctx context.Context, tx *sql.Tx, date, slot string, count int) error {
    if count <= 0 {
        return fmt.Errorf("takeout count must be positive, got %d", count)
    }
    const q = `UPDATE takeout_slots SET max_capacity = max_capacity - ? WHERE date = ? AND time_slot = ? AND max_capacity >= ?`
    res, err := tx.ExecContext(ctx, r.d.Rebind(q), count, date, slot, count)
    if err != nil {
        return fmt.Errorf("decrement takeout slot: %w", err)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrSlotFull
    }
    return nil
}

// ReleaseTakeoutTx gives count units back to a takeout slot.
func (r *SlotRepo) ReleaseTakeoutTx(ctx context.Context, tx *sql.Tx, date, slot string, count int) error {
    const q = `UPDATE takeout_slots SET max_capacity = max_capacity + ? WHERE date = ? AND time_slot = ?`
    _, err := tx.ExecContext(ctx, r.d.Rebind(q), count, date, slot)
    return err
}

// ResetTakeoutTx replaces the whole takeout pool with date's slots at ceiling.
func (r *SlotRepo) ResetTakeoutTx(ctx context.Context, tx *sql.Tx, date string, times []string, ceiling int) error {
    if _, err := tx.ExecContext(ctx, `DELETE FROM takeout_slots`); err != nil {
        return fmt.Errorf("clear takeout slots: %w", err)
    }
    if len(times) == 0 {
        return nil
    }
    query := `INSERT INTO takeout_slots (date, time_slot, max_capacity) VALUES `
    args := make([]any, 0, len(times)*3)
    for i, t := range times {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?)"
        args = append(args, date, t, ceiling)
    }
    _, err := tx.ExecContext(ctx, r.d.Rebind(query), args...)
    return err
}

// SetTakeoutCapacity overwrites one slot's counter, creating the row when
// it is missing.
func (r *SlotRepo) SetTakeoutCapacity(ctx context.Context, date, slot string, capacity int) error {
    prefix, suffix := r.d.InsertIgnore()
    if _, err := r.db.ExecContext(ctx, r.d.Rebind(prefix+` takeout_slots (date, time_slot, max_capacity) VALUES (?, ?, ?)`+suffix),
        date, slot, capacity); err != nil {
        return err
    }
    _, err := r.db.ExecContext(ctx, r.d.Rebind(`UPDATE takeout_slots SET max_capacity = ? WHERE date = ? AND time_slot = ?`),
        capacity, date, slot)
    return err
}
