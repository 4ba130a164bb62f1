package services

import (
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"

	"memberbase/internal/config"
)

// ErrEmailDispatch covers any transport or provider failure. Callers decide
// whether a failed send is fatal to their flow.
var ErrEmailDispatch = errors.New("email dispatch failed")

type EmailService interface {
	SendVerificationEmail(email, token string) error
	SendPasswordResetEmail(email, token string) error
}

// NewEmailService picks the dispatcher by config. "smtp" talks to a relay via
// gomail; "sendgrid" uses the provider's HTTP API.
func NewEmailService(cfg *config.Config) (EmailService, error) {
	switch cfg.Email.Provider {
	case "smtp":
		return &smtpEmailService{
			dialer:      gomail.NewDialer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPassword),
			from:        cfg.Email.FromEmail,
			frontendURL: cfg.App.FrontendURL,
		}, nil
	case "sendgrid":
		return &sendgridEmailService{
			client:      sendgrid.NewSendClient(cfg.Email.SendGridAPIKey),
			fromEmail:   cfg.Email.FromEmail,
			fromName:    cfg.Email.FromName,
			frontendURL: cfg.App.FrontendURL,
		}, nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Email.Provider)
	}
}

func verificationBody(frontendURL, token string) (subject, html string) {
	verificationURL := fmt.Sprintf("%s/verify-email?token=%s", frontendURL, token)
	subject = "Verify your email address"
	html = fmt.Sprintf(`
		<h1>Email Verification</h1>
		<p>Please click the link below to verify your email address:</p>
		<a href="%s">Verify Email</a>
		<p>This link will expire in 24 hours.</p>
	`, verificationURL)
	return subject, html
}

func passwordResetBody(token string) (subject, html string) {
	subject = "Password reset request"
	html = fmt.Sprintf(`
		<h3>Password reset requested</h3>
		<p>We received a request to reset the password for your account.</p>
		<p>Use the following token to reset your password: <strong>%s</strong></p>
		<p>If you did not request this change, you can ignore this email.</p>
	`, token)
	return subject, html
}

// --- SMTP ---

type smtpEmailService struct {
	dialer      *gomail.Dialer
	from        string
	frontendURL string
}

func (s *smtpEmailService) send(to, subject, html string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("%w: %v", ErrEmailDispatch, err)
	}
	return nil
}

func (s *smtpEmailService) SendVerificationEmail(email, token string) error {
	subject, html := verificationBody(s.frontendURL, token)
	return s.send(email, subject, html)
}

func (s *smtpEmailService) SendPasswordResetEmail(email, token string) error {
	subject, html := passwordResetBody(token)
	return s.send(email, subject, html)
}

// --- SendGrid ---

type sendgridEmailService struct {
	client      *sendgrid.Client
	fromEmail   string
	fromName    string
	frontendURL string
}

func (s *sendgridEmailService) send(to, subject, html string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	msg := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), "", html)
	resp, err := s.client.Send(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmailDispatch, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: provider status %d", ErrEmailDispatch, resp.StatusCode)
	}
	return nil
}

func (s *sendgridEmailService) SendVerificationEmail(email, token string) error {
	subject, html := verificationBody(s.frontendURL, token)
	return s.send(email, subject, html)
}

func (s *sendgridEmailService) SendPasswordResetEmail(email, token string) error {
	subject, html := passwordResetBody(token)
	return s.send(email, subject, html)
}
