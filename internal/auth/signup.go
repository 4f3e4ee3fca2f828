package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/quickcourt/quickcourt-api/internal/user"
	"github.com/quickcourt/quickcourt-api/internal/verification"
)

// SignupInput is a validated signup request
type SignupInput struct {
	FullName string
	Email    string
	Password string
	Role     user.Role
}

// PendingCode is returned by Signup and ResendOTP. Code is the generated
// one-time code; callers decide whether to expose it.
type PendingCode struct {
	Email string
	Code  string
}

// Signup stores the hashed signup data together with a fresh code and
// emails the code. No user row exists until VerifyOTP succeeds.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*PendingCode, error) {
	email := normalizeEmail(in.Email)

	if in.Role == user.RoleAdmin && !s.opts.AllowAdminSignup {
		return nil, ErrAdminSignupDisabled
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, user.ErrDuplicateEmail
	}

	passwordHash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	rec := &verification.Record{
		Email: email,
		Code:  s.newCode(),
		Signup: &verification.PendingSignup{
			FullName:     in.FullName,
			Email:        email,
			PasswordHash: passwordHash,
			Role:         string(in.Role),
		},
		IssuedAt:  now,
		ExpiresAt: now.Add(s.opts.OTPTTL),
	}

	if err := s.verifications.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save verification: %w", err)
	}

	s.sendCode(ctx, rec)

	return &PendingCode{Email: email, Code: rec.Code}, nil
}

// ResendOTP issues a new code for email. An existing record keeps its
// signup data; otherwise a code-only record is created.
func (s *Service) ResendOTP(ctx context.Context, email string) (*PendingCode, error) {
	email = normalizeEmail(email)
	now := s.now()

	rec, err := s.verifications.FindByEmail(ctx, email)
	switch {
	case err == nil:
		rec.Regenerate(s.newCode(), now, s.opts.OTPTTL)
	case errors.Is(err, verification.ErrNotFound):
		rec = &verification.Record{Email: email, Code: s.newCode(), IssuedAt: now, ExpiresAt: now.Add(s.opts.OTPTTL)}
	case errors.Is(err, verification.ErrCorrupt):
		s.logger.Warn("overwriting undecodable verification record", "email", email)
		rec = &verification.Record{Email: email, Code: s.newCode(), IssuedAt: now, ExpiresAt: now.Add(s.opts.OTPTTL)}
	default:
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}

	if err := s.verifications.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save verification: %w", err)
	}

	s.sendCode(ctx, rec)

	return &PendingCode{Email: email, Code: rec.Code}, nil
}

func (s *Service) sendCode(ctx context.Context, rec *verification.Record) {
	name := "User"
	if rec.HasSignup() && rec.Signup.FullName != "" {
		name = rec.Signup.FullName
	}
	email, code := rec.Email, rec.Code

	s.dispatch(ctx, "otp", email, func(ctx context.Context) error {
		return s.email.SendOTPEmail(ctx, email, code, name)
	})
}

// VerifyOTP checks code against the active record for email and, on a
// match, creates the user. A mismatch leaves the record untouched.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (uuid.UUID, error) {
	email = normalizeEmail(email)

	rec, err := s.verifications.FindActive(ctx, email, s.now())
	if err != nil {
		if errors.Is(err, verification.ErrNotFound) || errors.Is(err, verification.ErrCorrupt) {
			return uuid.Nil, err
		}
		return uuid.Nil, fmt.Errorf("failed to get verification: %w", err)
	}

	if !rec.HasSignup() {
		return uuid.Nil, ErrSignupDataMissing
	}

	if !rec.Matches(code) {
		return uuid.Nil, ErrInvalidOTP
	}

	created, err := s.signups.CompleteSignup(ctx, email, *rec.Signup)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return uuid.Nil, user.ErrDuplicateEmail
		}
		return uuid.Nil, err
	}

	s.dispatch(ctx, "welcome", created.Email, func(ctx context.Context) error {
		return s.email.SendWelcomeEmail(ctx, created.Email, created.Name)
	})

	return created.ID, nil
}
