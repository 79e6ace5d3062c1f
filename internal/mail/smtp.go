package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/go-mail/mail/v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type SMTPDispatcher struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPDispatcher(cfg SMTPConfig) *SMTPDispatcher {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.Timeout = cfg.Timeout
	if dialer.Timeout <= 0 {
		dialer.Timeout = 30 * time.Second
	}
	switch cfg.Port {
	case 587:
		dialer.StartTLSPolicy = gomail.MandatoryStartTLS
	case 465:
		dialer.SSL = true
		dialer.StartTLSPolicy = gomail.NoStartTLS
	default:
		dialer.StartTLSPolicy = gomail.OpportunisticStartTLS
	}
	return &SMTPDispatcher{dialer: dialer, from: cfg.From}
}

func (d *SMTPDispatcher) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := d.compose(msg)
	if err != nil {
		return err
	}
	// DialAndSend takes no context; the dialer timeout bounds the abandoned
	// goroutine once ctx gives up.
	done := make(chan error, 1)
	go func() { done <- d.dialer.DialAndSend(m) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send %s: %w", msg.Template, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send %s: %w", msg.Template, ctx.Err())
	}
}

func (d *SMTPDispatcher) compose(msg Message) (*gomail.Message, error) {
	rendered, err := Render(msg)
	if err != nil {
		return nil, err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", rendered.Subject)
	m.SetBody("text/plain", rendered.Text)
	m.AddAlternative("text/html", rendered.HTML)
	return m, nil
}
