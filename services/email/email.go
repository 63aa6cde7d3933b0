package email

import (
	"context"
	"crypto/tls"
	"fmt"

	"aiacard/config"
	"aiacard/utils"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer delivers a plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewMailer picks a delivery backend from EMAIL_PROVIDER: "sendgrid", "smtp"
// or "log".
func NewMailer(cfg config.Config) (Mailer, error) {
	switch cfg.EmailProvider {
	case "sendgrid":
		if cfg.SendGridAPIKey == "" || cfg.EmailFrom == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY and EMAIL_FROM must be set")
		}
		return &SendGridMailer{client: sendgrid.NewSendClient(cfg.SendGridAPIKey), fromName: cfg.SenderName, fromEmail: cfg.EmailFrom}, nil
	case "log":
		return LogMailer{}, nil
	case "smtp", "":
		if cfg.SMTPHost == "" || cfg.SMTPUser == "" {
			return nil, fmt.Errorf("SMTP_HOST and SMTP_USER must be set")
		}
		return NewSMTPMailer(cfg), nil
	}
	return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
}

// SMTPMailer sends through an SMTP relay with gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.Config) *SMTPMailer {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	d.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost}

	from := cfg.EmailFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &SMTPMailer{dialer: d, from: from}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// SendGridMailer sends through the SendGrid v3 API.
type SendGridMailer struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

func (m *SendGridMailer) Send(ctx context.Context, to, subject, body string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), body, body)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email via SendGrid: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("SendGrid API error, status code: %d, body: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer writes the message to the log instead of sending it. Development only.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, body string) error {
	utils.GetLogger().Info("email (log provider)", zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	return nil
}
