package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/mail"

	"github.com/resend/resend-go/v3"
	"gopkg.in/gomail.v2"

	"github.com/quickcourt/quickcourt-api/internal/config"
	"github.com/quickcourt/quickcourt-api/internal/logging"
)

// Message is a rendered email ready for delivery
type Message struct {
	From    mail.Address
	To      string
	Subject string
	HTML    string
}

// Transport delivers rendered messages to a mail relay
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// NewTransport builds the transport selected by cfg.Provider
func NewTransport(cfg config.EmailConfig, logger *logging.Logger) Transport {
	switch cfg.Provider {
	case "resend":
		return NewResendTransport(cfg.ResendAPIKey)
	case "log":
		return NewLogTransport(logger)
	default:
		return NewSMTPTransport(cfg)
	}
}

// SMTPTransport sends through an SMTP relay with STARTTLS
type SMTPTransport struct {
	dialer *gomail.Dialer
}

func NewSMTPTransport(cfg config.EmailConfig) *SMTPTransport {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	if cfg.InsecureSkipVerify {
		dialer.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost, InsecureSkipVerify: true}
	}
	return &SMTPTransport{dialer: dialer}
}

func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.From.Address, msg.From.Name)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := t.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// ResendTransport sends through the Resend HTTP API
type ResendTransport struct {
	client *resend.Client
}

func NewResendTransport(apiKey string) *ResendTransport {
	return &ResendTransport{client: resend.NewClient(apiKey)}
}

func (t *ResendTransport) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    msg.From.String(),
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}

	if _, err := t.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	return nil
}

// LogTransport only logs the message. Meant for local development.
type LogTransport struct {
	logger *logging.Logger
}

func NewLogTransport(logger *logging.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(_ context.Context, msg Message) error {
	t.logger.Info("email not delivered (log transport)",
		"to", msg.To,
		"subject", msg.Subject,
		"bytes", len(msg.HTML),
	)
	return nil
}
