// Package smtpmail provides the production Mailer backed by an SMTP
// transport.
package smtpmail

import (
	"context"
	"fmt"

	mail "github.com/wneessen/go-mail"

	"github.com/platformid/authcore/mailqueue"
)

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Mailer sends rendered messages over SMTP. It implements
// mailqueue.Mailer.
type Mailer struct {
	client *mail.Client
}

// New connects the SMTP client. Credentials are optional; when Username is
// empty the client authenticates anonymously.
func New(cfg Config) (*Mailer, error) {
	options := []mail.Option{
		mail.WithPort(cfg.Port),
	}
	if cfg.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, options...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &Mailer{client: client}, nil
}

// Send delivers one message. The context bounds the dial and transfer; a
// cancelled context surfaces as a failed delivery attempt to the queue
// worker.
func (m *Mailer) Send(ctx context.Context, msg mailqueue.Message) error {
	out := mail.NewMsg()
	if err := out.From(msg.From); err != nil {
		return err
	}
	if err := out.To(msg.To); err != nil {
		return err
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		out.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	return m.client.DialAndSendWithContext(ctx, out)
}
