package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quickcourt/quickcourt-api/internal/logging"
	"github.com/quickcourt/quickcourt-api/internal/user"
	"github.com/quickcourt/quickcourt-api/internal/verification"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountDisabled     = errors.New("account is disabled")
	ErrAdminSignupDisabled = errors.New("admin accounts cannot be created through signup")
	ErrInvalidOTP          = errors.New("invalid otp")
	// ErrSignupDataMissing is returned for records created by a resend
	// without a prior signup
	ErrSignupDataMissing = errors.New("verification record has no signup data")
)

// emailTimeout bounds a single best-effort email send
const emailTimeout = 30 * time.Second

// Options holds the tunables of the auth service
type Options struct {
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	OTPTTL               time.Duration
	AllowAdminSignup     bool
}

// Service handles authentication business logic
type Service struct {
	users          UserRepository
	verifications  VerificationRepository
	signups        SignupStore
	refreshTokens  RefreshTokenRepository
	passwordResets PasswordResetStore
	tokens         TokenService
	email          EmailService
	logger         *logging.Logger
	opts           Options

	now     func() time.Time
	newCode verification.CodeGenerator
	wg      sync.WaitGroup
}

func NewService(
	users UserRepository,
	verifications VerificationRepository,
	signups SignupStore,
	refreshTokens RefreshTokenRepository,
	passwordResets PasswordResetStore,
	tokens TokenService,
	emailService EmailService,
	logger *logging.Logger,
	opts Options,
) *Service {
	return &Service{
		users:          users,
		verifications:  verifications,
		signups:        signups,
		refreshTokens:  refreshTokens,
		passwordResets: passwordResets,
		tokens:         tokens,
		email:          emailService,
		logger:         logger,
		opts:           opts,
		now:            time.Now,
		newCode:        verification.RandomCode,
	}
}

// Wait blocks until every dispatched email has finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// dispatch runs send in the background. The request context only
// contributes its values; cancellation of the request does not abort the send.
func (s *Service) dispatch(ctx context.Context, kind, to string, send func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emailTimeout)
		defer cancel()

		if err := send(sendCtx); err != nil {
			s.logger.Warn("failed to send email", "kind", kind, "email", to, "error", err)
		}
	}()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login authenticates a user and returns tokens
func (s *Service) Login(ctx context.Context, email, password string) (*AuthTokens, *user.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	cred, err := s.users.GetCredential(ctx, existingUser.ID)
	if err != nil {
		if errors.Is(err, user.ErrCredentialNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to get credential: %w", err)
	}

	if !VerifyPassword(cred.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}

	if !existingUser.CanSignIn() {
		return nil, nil, ErrAccountDisabled
	}

	tokens, err := s.generateTokens(ctx, existingUser)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	return tokens, existingUser, nil
}

// RefreshAccessToken rotates a refresh token and issues a new access token
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	rt, err := s.refreshTokens.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) || errors.Is(err, ErrInvalidToken) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	if rt.IsRevoked() {
		return nil, ErrRefreshTokenRevoked
	}
	if rt.IsExpired() {
		return nil, ErrRefreshTokenExpired
	}

	// Revoke before issuing so a token can be used once
	if err := s.refreshTokens.RevokeRefreshToken(ctx, refreshToken); err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return nil, ErrRefreshTokenRevoked
		}
		return nil, fmt.Errorf("failed to revoke old refresh token: %w", err)
	}

	existingUser, err := s.users.GetByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !existingUser.CanSignIn() {
		return nil, ErrAccountDisabled
	}

	return s.generateTokens(ctx, existingUser)
}

// RevokeRefreshToken revokes a refresh token
func (s *Service) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	return s.refreshTokens.RevokeRefreshToken(ctx, refreshToken)
}

// Me returns the user behind an authenticated request
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) generateTokens(ctx context.Context, u *user.User) (*AuthTokens, error) {
	accessToken, err := s.tokens.CreateToken(u.ID, u.Email, u.Role, s.opts.AccessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	expiresAt := s.now().Add(s.opts.RefreshTokenDuration)
	if err := s.refreshTokens.StoreRefreshToken(ctx, u.ID, refreshToken, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.opts.AccessTokenDuration.Seconds()),
	}, nil
}

// RequestPasswordReset emails a reset link when the account exists.
// It never reports whether it does.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.logger.Warn("failed to get user for password reset", "error", err)
		}
		return nil
	}

	token, err := generateRandomToken()
	if err != nil {
		s.logger.Warn("failed to generate password reset token", "error", err)
		return nil
	}

	if err := s.passwordResets.StorePasswordResetToken(ctx, existingUser.ID, token); err != nil {
		s.logger.Warn("failed to store password reset token", "error", err)
		return nil
	}

	s.dispatch(ctx, "password_reset", email, func(ctx context.Context) error {
		return s.email.SendPasswordResetEmail(ctx, email, token)
	})

	return nil
}

// ResetPassword replaces the password of the token's owner and signs out
// every session
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := s.passwordResets.GetPasswordResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrPasswordResetTokenNotFound) {
			return ErrPasswordResetTokenNotFound
		}
		return fmt.Errorf("failed to get password reset token: %w", err)
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.passwordResets.DeletePasswordResetToken(ctx, token); err != nil {
		s.logger.Warn("failed to delete password reset token", "error", err)
	}

	if err := s.refreshTokens.RevokeAllUserTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke all user tokens after password reset", "error", err)
	}

	return nil
}
