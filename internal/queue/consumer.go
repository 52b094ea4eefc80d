// Package queue carries order events from the outbox to the broker and from
// the broker to the notifier.
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// ErrMalformed marks a delivery whose body is not a usable OrderEvent.
var ErrMalformed = errors.New("malformed order event")

// Handler processes one decoded event.  A returned error dead-letters the
// delivery.
type Handler func(ctx context.Context, ev OrderEvent) error

// Consumer reads the notification queue with manual acks and reconnects
// with exponential backoff whenever the broker goes away.
type Consumer struct {
    url      string
    handle   Handler
    log      *logrus.Logger
    Prefetch int
    seen     *recentIDs
}

// NewConsumer returns a Consumer that passes each event to handle.
func NewConsumer(url string, handle Handler, log *logrus.Logger) *Consumer {
    return &Consumer{url: url, handle: handle, log: log, Prefetch: 50, seen: newRecentIDs(4096)}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.WithError(err).WithField("retry_in", backoff.String()).Warn("notifier: dial broker failed")
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.WithError(err).Warn("notifier: consume loop ended, reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(c.Prefetch, 0, false); err != nil {
        c.log.WithError(err).Warn("notifier: set QoS failed")
    }
    if err := DeclareTopology(ch); err != nil {
        return err
    }
    msgs, err := ch.Consume(NotificationQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            c.deliver(ctx, d)
        }
    }
}

// deliver acks handled and duplicate deliveries and rejects the rest without
// requeueing, so a poison message lands in the dead-letter queue instead of
// looping.
func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
    entry := c.log.WithFields(logrus.Fields{"message_id": d.MessageId, "routing_key": d.RoutingKey})
    if d.MessageId != "" && c.seen.has(d.MessageId) {
        entry.Debug("notifier: duplicate delivery skipped")
        _ = d.Ack(false)
        return
    }
    if err := c.process(ctx, d.Body); err != nil {
        entry.WithError(err).Error("notifier: handle message failed")
        _ = d.Nack(false, false)
        return
    }
    if d.MessageId != "" {
        c.seen.add(d.MessageId)
    }
    _ = d.Ack(false)
}

func (c *Consumer) process(ctx context.Context, body []byte) error {
    var ev OrderEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("%w: %v", ErrMalformed, err)
    }
    if !ev.complete() {
        return fmt.Errorf("%w: missing type, order number or code", ErrMalformed)
    }
    return c.handle(ctx, ev)
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

// recentIDs remembers the last n message ids.
type recentIDs struct {
    ids  map[string]struct{}
    ring []string
    next int
}

func newRecentIDs(n int) *recentIDs {
    return &recentIDs{ids: make(map[string]struct{}, n), ring: make([]string, n)}
}

func (r *recentIDs) has(id string) bool {
    _, ok := r.ids[id]
    return ok
}

func (r *recentIDs) add(id string) {
    if old := r.ring[r.next]; old != "" {
        delete(r.ids, old)
    }
    r.ring[r.next] = id
    r.ids[id] = struct{}{}
    r.next = (r.next + 1) % len(r.ring)
}
