package queue

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends persistent JSON messages to the events exchange and waits
// for the broker to confirm each one.  It is safe for concurrent use; publishes
// are serialised so confirmations pair with their messages.
type Publisher struct {
    url  string
    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
    acks <-chan amqp.Confirmation
}

// NewPublisher returns a Publisher that dials url lazily on first use and
// again after the connection drops.
func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

func (p *Publisher) connect() error {
    if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
        return nil
    }
    p.closeLocked()
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return fmt.Errorf("dial broker: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return fmt.Errorf("open channel: %w", err)
    }
    if err := DeclareTopology(ch); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return err
    }
    if err := ch.Confirm(false); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return fmt.Errorf("enable confirms: %w", err)
    }
    p.conn, p.ch = conn, ch
    p.acks = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
    return nil
}

// Publish sends body with routingKey.  messageID lets consumers discard
// redeliveries of the same outbox row.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte, messageID string) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if err := p.connect(); err != nil {
        return err
    }
    err := p.ch.PublishWithContext(ctx, Exchange, routingKey, false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    messageID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    })
    if err != nil {
        p.closeLocked()
        return fmt.Errorf("publish %s: %w", routingKey, err)
    }
    select {
    case conf, ok := <-p.acks:
        if !ok {
            p.closeLocked()
            return errors.New("channel closed before confirm")
        }
        if !conf.Ack {
            return fmt.Errorf("broker rejected %s", routingKey)
        }
        return nil
    case <-ctx.Done():
        p.closeLocked()
        return ctx.Err()
    }
}

// Close releases the connection.
func (p *Publisher) Close() {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.closeLocked()
}

func (p *Publisher) closeLocked() {
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil {
        _ = p.conn.Close()
    }
    p.conn, p.ch, p.acks = nil, nil, nil
}
