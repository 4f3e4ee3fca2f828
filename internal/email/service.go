package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/mail"
	"net/url"
	"time"

	"github.com/quickcourt/quickcourt-api/internal/config"
	"github.com/quickcourt/quickcourt-api/internal/email/templates"
	"github.com/quickcourt/quickcourt-api/internal/logging"
)

const (
	subjectOTP           = "Verify Your Email - QuickCourt"
	subjectWelcome       = "Welcome to QuickCourt! 🎉"
	subjectPasswordReset = "Reset your QuickCourt password"
)

// Service renders and sends the application's emails. Callers treat it as
// best effort: errors are returned for logging, never surfaced to clients.
type Service struct {
	transport Transport
	from      mail.Address
	appURL    string
	otpTTL    time.Duration
	tmpl      *template.Template
}

func NewService(cfg config.EmailConfig, otpTTL time.Duration, transport Transport) (*Service, error) {
	tmpl, err := template.ParseFS(templates.FS, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	return &Service{
		transport: transport,
		from:      mail.Address{Name: cfg.FromName, Address: cfg.FromAddress},
		appURL:    cfg.AppURL,
		otpTTL:    otpTTL,
		tmpl:      tmpl,
	}, nil
}

// SendOTPEmail sends the verification code to toEmail
func (s *Service) SendOTPEmail(ctx context.Context, toEmail, code, name string) error {
	data := struct {
		Name             string
		Code             string
		ExpiresInMinutes int
		Year             int
	}{
		Name:             name,
		Code:             code,
		ExpiresInMinutes: int(s.otpTTL.Minutes()),
		Year:             time.Now().Year(),
	}

	return s.send(ctx, toEmail, subjectOTP, "otp.html", data)
}

// SendWelcomeEmail greets a newly verified user with a sign-in link
func (s *Service) SendWelcomeEmail(ctx context.Context, toEmail, name string) error {
	data := struct {
		Name       string
		SignInLink string
	}{
		Name:       name,
		SignInLink: s.appURL + "/auth/signin",
	}

	return s.send(ctx, toEmail, subjectWelcome, "welcome.html", data)
}

// SendPasswordResetEmail sends a password reset link to the user
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	data := struct {
		ResetLink string
		Year      int
	}{
		ResetLink: fmt.Sprintf("%s/auth/reset-password?token=%s", s.appURL, url.QueryEscape(token)),
		Year:      time.Now().Year(),
	}

	return s.send(ctx, toEmail, subjectPasswordReset, "password_reset.html", data)
}

func (s *Service) send(ctx context.Context, to, subject, name string, data any) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := s.render(name, data)
	if err != nil {
		logger.Error("failed to render email template", "template", name, "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	msg := Message{From: s.from, To: to, Subject: subject, HTML: body}
	if err := s.transport.Send(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("email sent", "template", name, "email", to)
	return nil
}

func (s *Service) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
