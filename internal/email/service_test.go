package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickcourt/quickcourt-api/internal/config"
	"github.com/quickcourt/quickcourt-api/internal/logging"
)

type captureTransport struct {
	sent []Message
	err  error
}

func (c *captureTransport) Send(_ context.Context, msg Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func newTestService(t *testing.T, transport Transport) *Service {
	t.Helper()
	svc, err := NewService(config.EmailConfig{
		FromAddress: "noreply@quickcourt.com",
		FromName:    "QuickCourt",
		AppURL:      "https://app.quickcourt.test",
	}, 10*time.Minute, transport)
	require.NoError(t, err)
	return svc
}

func TestSendOTPEmail(t *testing.T) {
	tr := &captureTransport{}
	svc := newTestService(t, tr)

	require.NoError(t, svc.SendOTPEmail(context.Background(), "ann@example.com", "48213", "Ann"))

	require.Len(t, tr.sent, 1)
	msg := tr.sent[0]
	assert.Equal(t, "ann@example.com", msg.To)
	assert.Equal(t, "Verify Your Email - QuickCourt", msg.Subject)
	assert.Equal(t, `"QuickCourt" <noreply@quickcourt.com>`, msg.From.String())
	assert.Contains(t, msg.HTML, "48213")
	assert.Contains(t, msg.HTML, "Hello Ann!")
	assert.Contains(t, msg.HTML, "expire in 10 minutes")
}

func TestSendWelcomeEmail_LinksToSignIn(t *testing.T) {
	tr := &captureTransport{}
	svc := newTestService(t, tr)

	require.NoError(t, svc.SendWelcomeEmail(context.Background(), "ann@example.com", "Ann"))

	require.Len(t, tr.sent, 1)
	assert.Equal(t, "Welcome to QuickCourt! 🎉", tr.sent[0].Subject)
	assert.Contains(t, tr.sent[0].HTML, `href="https://app.quickcourt.test/auth/signin"`)
}

func TestSendPasswordResetEmail_EscapesToken(t *testing.T) {
	tr := &captureTransport{}
	svc := newTestService(t, tr)

	require.NoError(t, svc.SendPasswordResetEmail(context.Background(), "ann@example.com", "ab+c/d="))

	require.Len(t, tr.sent, 1)
	assert.Contains(t, tr.sent[0].HTML, "/auth/reset-password?token=ab%2Bc%2Fd%3D")
}

func TestSend_TransportErrorIsReturned(t *testing.T) {
	svc := newTestService(t, &captureTransport{err: errors.New("relay down")})

	err := svc.SendWelcomeEmail(context.Background(), "ann@example.com", "Ann")
	assert.ErrorContains(t, err, "relay down")
}

func TestLogTransport_NeverFails(t *testing.T) {
	tr := NewLogTransport(logging.NewNopLogger())
	assert.NoError(t, tr.Send(context.Background(), Message{To: "ann@example.com"}))
}

func TestNewTransport_SelectsProvider(t *testing.T) {
	logger := logging.NewNopLogger()

	assert.IsType(t, &SMTPTransport{}, NewTransport(config.EmailConfig{Provider: "smtp"}, logger))
	assert.IsType(t, &ResendTransport{}, NewTransport(config.EmailConfig{Provider: "resend", ResendAPIKey: "re_test"}, logger))
	assert.IsType(t, &LogTransport{}, NewTransport(config.EmailConfig{Provider: "log"}, logger))
}
