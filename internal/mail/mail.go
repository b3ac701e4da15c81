// Package mail sends outgoing email over SMTP.
package mail

import (
	"bytes"
	"context"

	"github.com/go-faster/errors"
	gomail "github.com/wneessen/go-mail"
)

// Attachment is a file attached to an outgoing message.
type Attachment struct {
	Filename string
	Content  []byte
}

// Message is one outgoing email.
type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds SMTP connection settings. With Enabled false the application
// falls back to the Discard mailer.
type Config struct {
	Enabled  bool   `default:"false" usage:"Send mail through SMTP instead of discarding it"`
	Host     string `default:"localhost"`
	Port     int    `default:"587"`
	Username string
	Password string
	From     string `default:"noreply@slagerijlouman.nl"`
}

// SMTP is a Mailer backed by an SMTP relay.
type SMTP struct {
	client *gomail.Client
	from   string
}

var _ Mailer = (*SMTP)(nil)

// NewSMTP connects the mailer to the configured relay. Credentials are
// optional for relays that accept unauthenticated local delivery.
func NewSMTP(cfg Config) (*SMTP, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "smtp client")
	}
	return &SMTP{client: client, from: cfg.From}, nil
}

// Send delivers one message to all recipients.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMsg()
	if err := m.From(s.from); err != nil {
		return errors.Wrap(err, "set from")
	}
	if err := m.To(msg.To...); err != nil {
		return errors.Wrap(err, "set recipients")
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	for _, a := range msg.Attachments {
		if err := m.AttachReader(a.Filename, bytes.NewReader(a.Content)); err != nil {
			return errors.Wrap(err, "attach file")
		}
	}
	return s.client.DialAndSendWithContext(ctx, m)
}

// Discard is a Mailer that drops every message, for environments without an
// SMTP relay.
type Discard struct{}

var _ Mailer = Discard{}

func (Discard) Send(_ context.Context, _ Message) error { return nil }
