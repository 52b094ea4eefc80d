package queue

import (
    "context"
    "strconv"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/wild-pasta-booking/internal/repository"
)

// EventPublisher is the broker side of the relay.
type EventPublisher interface {
    Publish(ctx context.Context, routingKey string, body []byte, messageID string) error
}

// OutboxStore is the storage side of the relay.
type OutboxStore interface {
    FetchPending(ctx context.Context, limit int) ([]repository.OutboxRecord, error)
    MarkPublished(ctx context.Context, id uint64, at time.Time) error
    MarkFailed(ctx context.Context, id uint64, cause error) error
}

// Relay copies committed outbox rows to the broker.  Delivery is at least
// once: a crash between publish and MarkPublished republishes the row, and
// consumers dedupe on the message id.
type Relay struct {
    store    OutboxStore
    pub      EventPublisher
    log      *logrus.Logger
    Batch    int
    Interval time.Duration
}

// NewRelay returns a Relay polling every second in batches of 100.
func NewRelay(store OutboxStore, pub EventPublisher, log *logrus.Logger) *Relay {
    return &Relay{store: store, pub: pub, log: log, Batch: 100, Interval: time.Second}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
    t := time.NewTicker(r.Interval)
    defer t.Stop()
    for {
        if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
            r.log.WithError(err).Warn("outbox relay pass failed")
        }
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-t.C:
        }
    }
}

// RunOnce publishes one batch in id order and returns how many rows were
// delivered.  It stops at the first failed publish so events for the same
// order are never reordered.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
    rows, err := r.store.FetchPending(ctx, r.Batch)
    if err != nil {
        return 0, err
    }
    sent := 0
    for _, rec := range rows {
        entry := r.log.WithFields(logrus.Fields{"outbox_id": rec.ID, "event": rec.EventType, "aggregate_id": rec.AggregateID})
        if err := r.pub.Publish(ctx, rec.EventType, rec.Payload, strconv.FormatUint(rec.ID, 10)); err != nil {
            entry.WithError(err).WithField("attempts", rec.Attempts+1).Warn("publish failed, will retry")
            if merr := r.store.MarkFailed(ctx, rec.ID, err); merr != nil {
                return sent, merr
            }
            return sent, err
        }
        if err := r.store.MarkPublished(ctx, rec.ID, time.Now()); err != nil {
            return sent, err
        }
        entry.Debug("event published")
        sent++
    }
    return sent, nil
}
