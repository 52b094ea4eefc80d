package queue

import (
    "fmt"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Broker names.  Every event goes to one topic exchange keyed by event type;
// consumers bind their own durable queues to it.
const (
    Exchange           = "wildpasta.events"
    DeadLetterExchange = "wildpasta.events.dlx"
    NotificationQueue  = "notifications.email"
    notificationDead   = "notifications.email.dead"
)

// notificationKeys are the routing keys the notification queue listens on.
var notificationKeys = []string{"order.*", "account.*"}

// DeclareTopology declares the exchanges and the notification queue with its
// dead-letter queue.  All declarations are idempotent.
func DeclareTopology(ch *amqp.Channel) error {
    for _, ex := range []struct{ name, kind string }{
        {Exchange, amqp.ExchangeTopic},
        {DeadLetterExchange, amqp.ExchangeFanout},
    } {
        if err := ch.ExchangeDeclare(ex.name, ex.kind, true, false, false, false, nil); err != nil {
            return fmt.Errorf("declare exchange %s: %w", ex.name, err)
        }
    }
    if _, err := ch.QueueDeclare(notificationDead, true, false, false, false, nil); err != nil {
        return fmt.Errorf("declare queue %s: %w", notificationDead, err)
    }
    if err := ch.QueueBind(notificationDead, "", DeadLetterExchange, false, nil); err != nil {
        return fmt.Errorf("bind queue %s: %w", notificationDead, err)
    }
    args := amqp.Table{"x-dead-letter-exchange": DeadLetterExchange}
    if _, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, args); err != nil {
        return fmt.Errorf("declare queue %s: %w", NotificationQueue, err)
    }
    for _, key := range notificationKeys {
        if err := ch.QueueBind(NotificationQueue, key, Exchange, false, nil); err != nil {
            return fmt.Errorf("bind queue %s to %s: %w", NotificationQueue, key, err)
        }
    }
    return nil
}
