package services

import (
	"context"
	"errors"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

var (
	MailError = errs.Class("mailer")

	ErrMailNotConfigured = errors.New("SendGrid API key not configured")
)

// Mailer delivers rendered newsletters through SendGrid.
type Mailer struct {
	apiKey string
	from   string
	log    *zap.Logger
}

func NewMailer(apiKey, fromEmail string, log *zap.Logger) *Mailer {
	return &Mailer{apiKey: apiKey, from: fromEmail, log: log}
}

func (m *Mailer) Configured() bool { return m.apiKey != "" }

// Send delivers one email. A non-2xx provider status is an error so the task
// layer can retry; success is the only path that lets callers stamp sent_at.
func (m *Mailer) Send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	if !m.Configured() {
		return ErrMailNotConfigured
	}
	if textBody == "" {
		textBody = htmlBody
	}

	from := mail.NewEmail("Newsforge", m.from)
	to := mail.NewEmail("", toEmail)
	message := mail.NewSingleEmail(from, subject, to, textBody, htmlBody)

	client := sendgrid.NewSendClient(m.apiKey)
	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		return MailError.Wrap(err)
	}
	if resp.StatusCode >= 300 {
		m.log.Warn("sendgrid rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("to", toEmail),
		)
		return MailError.New("sendgrid status %d", resp.StatusCode)
	}

	m.log.Info("email sent",
		zap.String("to", toEmail),
		zap.String("subject", subject),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}
