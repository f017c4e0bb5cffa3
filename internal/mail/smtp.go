// Package mail implements reminder.Mailer transports.
package mail

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	reminder "github.com/ace-232/day-planner-app"
)

// SMTPConfig configures an SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// StartTLS upgrades the connection when the server offers it.
	StartTLS bool
}

// SMTPMailer sends plain-text mail over SMTP, one connection per message.
type SMTPMailer struct {
	cfg  SMTPConfig
	opts []gomail.Option
	now  func() time.Time
}

var _ reminder.Mailer = (*SMTPMailer)(nil)

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	policy := gomail.NoTLS
	if cfg.StartTLS {
		policy = gomail.TLSOpportunistic
	}
	opts := []gomail.Option{gomail.WithPort(cfg.Port), gomail.WithTLSPolicy(policy)}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	return &SMTPMailer{cfg: cfg, opts: opts, now: time.Now}
}

// Send delivers one message. The context deadline bounds the whole SMTP
// conversation.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg, err := newMessage(m.cfg.From, to, subject, body, m.now())
	if err != nil {
		return err
	}

	var stop func() bool
	dial := func(dctx context.Context, network, addr string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(dctx, network, addr)
		if err != nil {
			return nil, err
		}
		if dl, ok := ctx.Deadline(); ok {
			_ = conn.SetDeadline(dl)
		}
		// unblock the conversation when ctx is cancelled without a deadline
		stop = context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
		return conn, nil
	}
	defer func() {
		if stop != nil {
			stop()
		}
	}()

	opts := append([]gomail.Option{gomail.WithDialContextFunc(dial)}, m.opts...)
	c, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// newMessage builds a plain-text message with an explicit Date header.
func newMessage(from, to, subject, body string, date time.Time) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("smtp from %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("smtp to %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetDateWithValue(date)
	msg.SetBodyString(gomail.TypeTextPlain, body)
	return msg, nil
}
