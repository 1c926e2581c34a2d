package services

import (
	"fmt"
	"log/slog"

	"github.com/kendall-kelly/service-crm-api/config"
	"gopkg.in/gomail.v2"
)

// Mailer sends account mail
type Mailer interface {
	SendVerificationEmail(to, token string) error
}

// SMTPMailer sends mail through an SMTP relay
type SMTPMailer struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
}

// NewSMTPMailer creates an SMTP mailer from cfg
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		dialer:  gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:    cfg.SMTPFrom,
		baseURL: cfg.PublicBaseURL,
	}
}

// VerificationURL builds the public link that verifies an account
func VerificationURL(baseURL, token string) string {
	return fmt.Sprintf("%s/api/v1/auth/verify/%s", baseURL, token)
}

// SendVerificationEmail sends the account verification link
func (m *SMTPMailer) SendVerificationEmail(to, token string) error {
	link := VerificationURL(m.baseURL, token)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Confirm your email address")
	msg.SetBody("text/plain", fmt.Sprintf("Welcome!\n\nConfirm your email address by opening:\n%s\n", link))
	msg.AddAlternative("text/html", fmt.Sprintf(
		`<p>Welcome!</p><p>Confirm your email address: <a href="%s">%s</a></p>`, link, link))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

// LogMailer only logs; used when SMTP is not configured
type LogMailer struct {
	log     *slog.Logger
	baseURL string
}

// NewLogMailer creates a mailer that writes the verification link to the log
func NewLogMailer(log *slog.Logger, baseURL string) *LogMailer {
	return &LogMailer{log: log, baseURL: baseURL}
}

// SendVerificationEmail logs the verification link
func (m *LogMailer) SendVerificationEmail(to, token string) error {
	m.log.Info("smtp not configured, verification link not mailed", "to", to, "link", VerificationURL(m.baseURL, token))
	return nil
}
