package notify

import (
	"context"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/taskyard/backend/internal/config"
)

// Mailer delivers notification email over SMTP.
type Mailer struct {
	client *mail.Client
	from   string
	logger *zap.Logger
}

// NewMailer builds an SMTP client from configuration. Auth and TLS are only
// enabled when credentials are present, so a local relay (e.g. mailcatcher)
// works out of the box.
func NewMailer(cfg config.SMTPConfig, logger *zap.Logger) (*Mailer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, err
	}

	return &Mailer{
		client: client,
		from:   cfg.From,
		logger: logger,
	}, nil
}

// Send delivers one message to all recipients.
func (m *Mailer) Send(ctx context.Context, subject, body string, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return err
	}
	if err := msg.To(recipients...); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return err
	}

	m.logger.Debug("notification sent",
		zap.String("subject", subject),
		zap.Int("recipients", len(recipients)))
	return nil
}
