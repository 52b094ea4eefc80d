package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "fmt"
    "time"

    "github.com/iliyamo/wild-pasta-booking/internal/database"
)

// OutboxRecord mirrors a row of outbox_events.
type OutboxRecord struct {
    ID          uint64
    EventType   string
    AggregateID string
    Payload     []byte
    Attempts    int
    CreatedAt   time.Time
}

// OutboxRepo stores domain events written in the same transaction as the
// state change they describe; a relay publishes them afterwards.
type OutboxRepo struct {
    db *sql.DB
    d  database.Dialect
}

// NewOutboxRepo returns an OutboxRepo bound to db.
func NewOutboxRepo(db *sql.DB, d database.Dialect) *OutboxRepo { return &OutboxRepo{db: db, d: d} }

// EmitTx JSON-encodes payload and appends it to the outbox inside tx.
func (r *OutboxRepo) EmitTx(ctx context.Context, tx *sql.Tx, eventType, aggregateID string, payload any, at time.Time) error {
    body, err := json.Marshal(payload)
    if err != nil {
        return fmt.Errorf("encode %s event: %w", eventType, err)
    }
    const q = `INSERT INTO outbox_events (event_type, aggregate_id, payload, attempts, created_at) VALUES (?, ?, ?, 0, ?)`
    if _, err := tx.ExecContext(ctx, r.d.Rebind(q), eventType, aggregateID, string(body), at.UTC()); err != nil {
        return fmt.Errorf("emit %s event: %w", eventType, err)
    }
    return nil
}

// FetchPending returns up to limit unpublished events in insertion order.
func (r *OutboxRepo) FetchPending(ctx context.Context, limit int) ([]OutboxRecord, error) {
    const q = `SELECT id, event_type, aggregate_id, payload, attempts, created_at FROM outbox_events
        WHERE published_at IS NULL ORDER BY id LIMIT ?`
    rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []OutboxRecord
    for rows.Next() {
        var rec OutboxRecord
        var payload string
        if err := rows.Scan(&rec.ID, &rec.EventType, &rec.AggregateID, &payload, &rec.Attempts, &rec.CreatedAt); err != nil {
            return nil, err
        }
        rec.Payload = []byte(payload)
        out = append(out, rec)
    }
    return out, rows.Err()
}

// MarkPublished stamps an event as delivered to the broker.
func (r *OutboxRepo) MarkPublished(ctx context.Context, id uint64, at time.Time) error {
    _, err := r.db.ExecContext(ctx, r.d.Rebind(`UPDATE outbox_events SET published_at = ? WHERE id = ?`), at.UTC(), id)
    return err
}

// MarkFailed records a failed publish attempt; the event stays pending.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id uint64, cause error) error {
    msg := ""
    if cause != nil {
        msg = truncate(cause.Error(), 255)
    }
    _, err := r.db.ExecContext(ctx, r.d.Rebind(`UPDATE outbox_events SET attempts = attempts + 1, last_error = ? WHERE id = ?`),
        msg, id)
    return err
}
