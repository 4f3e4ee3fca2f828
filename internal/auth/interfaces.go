package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quickcourt/quickcourt-api/internal/user"
	"github.com/quickcourt/quickcourt-api/internal/verification"
)

// TokenService defines the interface for token creation and validation.
// Implementations include PasetoService (PASETO v4.local) and JWTService (HS256).
type TokenService interface {
	CreateToken(userID uuid.UUID, email string, role user.Role, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// UserRepository is the read side of user storage used by the service
type UserRepository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetCredential(ctx context.Context, userID uuid.UUID) (*user.Credential, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

// VerificationRepository stores pending email verifications
type VerificationRepository interface {
	Save(ctx context.Context, rec *verification.Record) error
	FindByEmail(ctx context.Context, email string) (*verification.Record, error)
	FindActive(ctx context.Context, email string, now time.Time) (*verification.Record, error)
}

// SignupStore turns a confirmed pending signup into a user. The user row,
// its credential and the removal of the verification record for identifier
// must commit together or not at all.
type SignupStore interface {
	CompleteSignup(ctx context.Context, identifier string, signup verification.PendingSignup) (*user.User, error)
}

// PasswordResetStore keeps short-lived password reset tokens
type PasswordResetStore interface {
	StorePasswordResetToken(ctx context.Context, userID uuid.UUID, token string) error
	GetPasswordResetToken(ctx context.Context, token string) (uuid.UUID, error)
	DeletePasswordResetToken(ctx context.Context, token string) error
}

// EmailService defines the interface for email operations
type EmailService interface {
	SendOTPEmail(ctx context.Context, toEmail, code, name string) error
	SendWelcomeEmail(ctx context.Context, toEmail, name string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, token string) error
}

// RateLimiter is the subset of ratelimit.Limiter the handlers use
type RateLimiter interface {
	CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error)
	RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error
	CheckEmailCooldown(ctx context.Context, email string) (bool, error)
	SetEmailCooldown(ctx context.Context, email string) error
	CheckVerifyAttempts(ctx context.Context, email string) (bool, error)
	RecordVerifyAttempt(ctx context.Context, email string) error
	ResetVerifyAttempts(ctx context.Context, email string) error
}
