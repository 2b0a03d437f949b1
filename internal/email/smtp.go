package email

import (
	"context"

	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/config"

	"github.com/wneessen/go-mail"
)

// SMTPSender delivers mail through the configured SMTP relay.
type SMTPSender struct {
	cfg config.EmailConfig
}

// NewSMTPSender creates an SMTP sender.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers one message. Failures come back as transient errors so
// the task queue retries them.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.FromFormat(s.cfg.GetEmailFromName(), s.cfg.GetEmailFromAddress()); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid from address", err)
	}
	if err := m.AddToFormat(msg.ToName, msg.To); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid recipient address", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.TextBody)

	client, err := mail.NewClient(s.cfg.GetSMTPHost(),
		mail.WithPort(s.cfg.GetSMTPPort()),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.GetSMTPUsername()),
		mail.WithPassword(s.cfg.GetSMTPPassword()),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return apperr.Transient("smtp client setup failed", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return apperr.Transient("smtp delivery failed", err)
	}
	return nil
}
