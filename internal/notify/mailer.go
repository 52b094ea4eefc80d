package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wild-pasta-booking/internal/config"
)

// Mailer delivers a rendered message.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// SMTPMailer sends through an SMTP relay with PLAIN auth when credentials
// are configured.
type SMTPMailer struct {
	cfg  config.SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer returns a mailer for cfg.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// Send implements Mailer.  net/smtp has no context support; ctx is only
// checked before dialing.
func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := s.send(addr, auth, s.cfg.From, []string{m.To}, s.compose(m)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.To, err)
	}
	return nil
}

func (s *SMTPMailer) compose(m Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.BEncoding.Encode("UTF-8", m.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(m.Body)
	return b.Bytes()
}

// LogMailer writes messages to the log instead of sending them.  Used when
// no SMTP host is configured.
type LogMailer struct{ Log *logrus.Logger }

// Send implements Mailer.
func (l LogMailer) Send(_ context.Context, m Message) error {
	l.Log.WithFields(logrus.Fields{"to": m.To, "subject": m.Subject}).Info("email (not sent, SMTP disabled)\n" + m.Body)
	return nil
}

// NewMailer picks SMTP when a host is configured.
func NewMailer(cfg config.SMTPConfig, log *logrus.Logger) Mailer {
	if cfg.Host == "" {
		return LogMailer{Log: log}
	}
	return NewSMTPMailer(cfg)
}
