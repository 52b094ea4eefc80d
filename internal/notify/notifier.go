package notify

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wild-pasta-booking/internal/queue"
)

// Notifier is the queue handler that emails customers about their orders
// and mails members their verification codes.
type Notifier struct {
	render *Renderer
	mail   Mailer
	log    *logrus.Logger
}

// NewNotifier returns a Notifier.
func NewNotifier(r *Renderer, m Mailer, log *logrus.Logger) *Notifier {
	return &Notifier{render: r, mail: m, log: log}
}

// Handle renders and sends the email for ev.  Delivery failures are logged
// and swallowed; the order itself is already committed.  Only events that
// cannot be rendered are reported back so the consumer dead-letters them.
func (n *Notifier) Handle(ctx context.Context, ev queue.OrderEvent) error {
	entry := n.log.WithFields(logrus.Fields{"ord_number": ev.OrderNumber, "event": ev.Type, "kind": ev.Kind})
	msg, err := n.render.Render(ev)
	if errors.Is(err, ErrNoRecipient) {
		entry.Info("no email address on order, skipping notification")
		return nil
	}
	if err != nil {
		return err
	}
	if err := n.mail.Send(ctx, msg); err != nil {
		entry.WithError(err).Error("email delivery failed")
		return nil
	}
	entry.WithField("to", msg.To).Info("notification sent")
	return nil
}
