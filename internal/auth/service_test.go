package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickcourt/quickcourt-api/internal/logging"
	"github.com/quickcourt/quickcourt-api/internal/user"
	"github.com/quickcourt/quickcourt-api/internal/verification"
)

var testPasetoKey = []byte("0123456789abcdef0123456789abcdef")

type fixture struct {
	svc     *Service
	store   *memStore
	refresh *memRefreshTokens
	resets  *memResets
	email   *recordingEmail
	tokens  TokenService
	clock   time.Time
	codes   []string
}

func newFixture(t *testing.T, codes ...string) *fixture {
	t.Helper()

	tokens, err := NewPasetoService(testPasetoKey)
	require.NoError(t, err)

	f := &fixture{
		store:   newMemStore(),
		refresh: newMemRefreshTokens(),
		resets:  &memResets{tokens: map[string]uuid.UUID{}},
		email:   &recordingEmail{},
		tokens:  tokens,
		clock:   time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
		codes:   codes,
	}

	f.svc = NewService(f.store, f.store, f.store, f.refresh, f.resets, tokens, f.email, logging.NewNopLogger(), Options{
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
		OTPTTL:               10 * time.Minute,
	})
	f.svc.now = func() time.Time { return f.clock }
	f.svc.newCode = func() string {
		if len(f.codes) == 0 {
			return "12345"
		}
		c := f.codes[0]
		f.codes = f.codes[1:]
		return c
	}

	t.Cleanup(f.svc.Wait)
	return f
}

func (f *fixture) signup(t *testing.T, email string) *PendingCode {
	t.Helper()
	pending, err := f.svc.Signup(context.Background(), SignupInput{
		FullName: "Jane Player",
		Email:    email,
		Password: "secret123",
		Role:     user.RoleCustomer,
	})
	require.NoError(t, err)
	return pending
}

func TestSignup_StoresPendingRecordWithTenMinuteExpiry(t *testing.T) {
	f := newFixture(t, "48213")

	pending := f.signup(t, "jane@example.com")

	assert.Equal(t, "48213", pending.Code)
	assert.Equal(t, "jane@example.com", pending.Email)

	rec, ok := f.store.record("jane@example.com")
	require.True(t, ok)
	assert.Equal(t, f.clock, rec.IssuedAt)
	assert.Equal(t, f.clock.Add(10*time.Minute), rec.ExpiresAt)
	require.NotNil(t, rec.Signup)
	assert.Equal(t, "Jane Player", rec.Signup.FullName)
	assert.Equal(t, "CUSTOMER", rec.Signup.Role)
	assert.NotEqual(t, "secret123", rec.Signup.PasswordHash)
	assert.True(t, VerifyPassword(rec.Signup.PasswordHash, "secret123"))

	assert.Zero(t, f.store.userCount())

	f.svc.Wait()
	sent := f.email.all()
	require.Len(t, sent, 1)
	assert.Equal(t, sentEmail{Kind: "otp", To: "jane@example.com", Code: "48213", Name: "Jane Player"}, sent[0])
}

func TestSignup_RepeatedSignupCreatesNoUser(t *testing.T) {
	f := newFixture(t, "11111", "22222")

	f.signup(t, "jane@example.com")
	f.signup(t, "jane@example.com")

	assert.Zero(t, f.store.userCount())
	rec, ok := f.store.record("jane@example.com")
	require.True(t, ok)
	assert.Equal(t, "22222", rec.Code)
}

func TestSignup_NormalizesEmail(t *testing.T) {
	f := newFixture(t)

	pending := f.signup(t, "  Jane@Example.COM ")

	assert.Equal(t, "jane@example.com", pending.Email)
	_, ok := f.store.record("jane@example.com")
	assert.True(t, ok)
}

func TestSignup_ExistingUserIsConflict(t *testing.T) {
	f := newFixture(t)
	f.store.addUser("jane@example.com", "whatever", user.RoleCustomer)

	_, err := f.svc.Signup(context.Background(), SignupInput{
		FullName: "Jane", Email: "jane@example.com", Password: "secret123", Role: user.RoleCustomer,
	})

	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
	_, ok := f.store.record("jane@example.com")
	assert.False(t, ok)
}

func TestSignup_AdminRoleRejectedByDefault(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Signup(context.Background(), SignupInput{
		FullName: "Root", Email: "root@example.com", Password: "secret123", Role: user.RoleAdmin,
	})
	assert.ErrorIs(t, err, ErrAdminSignupDisabled)

	f.svc.opts.AllowAdminSignup = true
	_, err = f.svc.Signup(context.Background(), SignupInput{
		FullName: "Root", Email: "root@example.com", Password: "secret123", Role: user.RoleAdmin,
	})
	assert.NoError(t, err)
}

func TestSignup_EmailFailureIsNotSurfaced(t *testing.T) {
	f := newFixture(t)
	f.email.err = errors.New("relay down")

	_, err := f.svc.Signup(context.Background(), SignupInput{
		FullName: "Jane", Email: "jane@example.com", Password: "secret123", Role: user.RoleCustomer,
	})

	require.NoError(t, err)
	f.svc.Wait()
	assert.Len(t, f.email.all(), 1)
}

func TestVerifyOTP_MismatchKeepsRecord(t *testing.T) {
	f := newFixture(t, "11111")
	f.signup(t, "jane@example.com")

	_, err := f.svc.VerifyOTP(context.Background(), "jane@example.com", "99999")

	assert.ErrorIs(t, err, ErrInvalidOTP)
	rec, ok := f.store.record("jane@example.com")
	require.True(t, ok)
	assert.Equal(t, "11111", rec.Code)
	assert.Zero(t, f.store.userCount())
}

func TestVerifyOTP_ExpiredCodeIsNotFound(t *testing.T) {
	f := newFixture(t, "11111")
	f.signup(t, "jane@example.com")

	f.clock = f.clock.Add(10 * time.Minute)

	_, err := f.svc.VerifyOTP(context.Background(), "jane@example.com", "11111")
	assert.ErrorIs(t, err, verification.ErrNotFound)
	assert.Zero(t, f.store.userCount())
}

func TestVerifyOTP_CreatesExactlyOneUser(t *testing.T) {
	f := newFixture(t, "11111")
	f.signup(t, "jane@example.com")

	userID, err := f.svc.VerifyOTP(context.Background(), "jane@example.com", "11111")
	require.NoError(t, err)

	assert.Equal(t, 1, f.store.userCount())
	u, err := f.store.GetByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Player", u.Name)
	assert.Equal(t, user.RoleCustomer, u.Role)
	assert.True(t, u.EmailVerified)
	assert.True(t, u.CanSignIn())

	cred, err := f.store.GetCredential(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(cred.PasswordHash, "secret123"))

	_, ok := f.store.record("jane@example.com")
	assert.False(t, ok)

	_, err = f.svc.VerifyOTP(context.Background(), "jane@example.com", "11111")
	assert.ErrorIs(t, err, verification.ErrNotFound)
	assert.Equal(t, 1, f.store.userCount())

	f.svc.Wait()
	var kinds []string
	for _, m := range f.email.all() {
		kinds = append(kinds, m.Kind)
	}
	assert.Equal(t, []string{"otp", "welcome"}, kinds)
}

func TestVerifyOTP_StoreFailureLeavesRecord(t *testing.T) {
	f := newFixture(t, "11111")
	f.signup(t, "jane@example.com")
	f.store.failSignup = errors.New("tx aborted")

	_, err := f.svc.VerifyOTP(context.Background(), "jane@example.com", "11111")

	require.Error(t, err)
	_, ok := f.store.record("jane@example.com")
	assert.True(t, ok)
	assert.Zero(t, f.store.userCount())
}

func TestResend_ChangesCodeAndResetsExpiry(t *testing.T) {
	f := newFixture(t, "11111", "22222")
	f.signup(t, "jane@example.com")
	before, _ := f.store.record("jane@example.com")

	f.clock = f.clock.Add(5 * time.Minute)
	pending, err := f.svc.ResendOTP(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "22222", pending.Code)

	after, _ := f.store.record("jane@example.com")
	assert.NotEqual(t, before.Code, after.Code)
	assert.Equal(t, f.clock, after.IssuedAt)
	assert.Equal(t, f.clock.Add(10*time.Minute), after.ExpiresAt)
	assert.Equal(t, before.Signup, after.Signup)

	_, err = f.svc.VerifyOTP(context.Background(), "jane@example.com", "00000")
	assert.ErrorIs(t, err, ErrInvalidOTP)

	_, err = f.svc.VerifyOTP(context.Background(), "jane@example.com", "11111")
	assert.ErrorIs(t, err, ErrInvalidOTP)

	_, err = f.svc.VerifyOTP(context.Background(), "jane@example.com", "22222")
	assert.NoError(t, err)
}

func TestResend_WithoutSignupCreatesCodeOnlyRecord(t *testing.T) {
	f := newFixture(t, "33333")

	_, err := f.svc.ResendOTP(context.Background(), "ghost@example.com")
	require.NoError(t, err)

	rec, ok := f.store.record("ghost@example.com")
	require.True(t, ok)
	assert.Nil(t, rec.Signup)

	_, err = f.svc.VerifyOTP(context.Background(), "ghost@example.com", "33333")
	assert.ErrorIs(t, err, ErrSignupDataMissing)
	assert.Zero(t, f.store.userCount())

	f.svc.Wait()
	sent := f.email.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "User", sent[0].Name)
}

func TestVerifyOTP_CorruptRecord(t *testing.T) {
	f := newFixture(t, "11111", "22222")
	f.signup(t, "jane@example.com")
	f.store.corrupt["jane@example.com"] = true

	_, err := f.svc.VerifyOTP(context.Background(), "jane@example.com", "11111")
	assert.ErrorIs(t, err, verification.ErrCorrupt)

	_, err = f.svc.ResendOTP(context.Background(), "jane@example.com")
	require.NoError(t, err)
	rec, _ := f.store.record("jane@example.com")
	assert.Equal(t, "22222", rec.Code)
	assert.Nil(t, rec.Signup)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	u := f.store.addUser("owner@example.com", "secret123", user.RoleFacilityOwner)

	tokens, got, err := f.svc.Login(context.Background(), "Owner@Example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.Equal(t, int64(900), tokens.ExpiresIn)

	claims, err := f.tokens.VerifyToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), claims.UserID)
	assert.Equal(t, user.RoleFacilityOwner, claims.Role)

	_, _, err = f.svc.Login(context.Background(), "owner@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = f.svc.Login(context.Background(), "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_BannedUser(t *testing.T) {
	f := newFixture(t)
	u := f.store.addUser("banned@example.com", "secret123", user.RoleCustomer)
	u.IsBanned = true

	_, _, err := f.svc.Login(context.Background(), "banned@example.com", "secret123")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestRefreshAccessToken_RotatesToken(t *testing.T) {
	f := newFixture(t)
	f.store.addUser("jane@example.com", "secret123", user.RoleCustomer)

	tokens, _, err := f.svc.Login(context.Background(), "jane@example.com", "secret123")
	require.NoError(t, err)

	rotated, err := f.svc.RefreshAccessToken(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	_, err = f.svc.RefreshAccessToken(context.Background(), tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)

	_, err = f.svc.RefreshAccessToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	u := f.store.addUser("jane@example.com", "secret123", user.RoleCustomer)
	tokens, _, err := f.svc.Login(context.Background(), "jane@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "jane@example.com"))
	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "unknown@example.com"))
	f.svc.Wait()

	sent := f.email.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "password_reset", sent[0].Kind)
	assert.Equal(t, f.resets.only(), sent[0].Token)

	require.NoError(t, f.svc.ResetPassword(context.Background(), sent[0].Token, "newsecret"))

	_, _, err = f.svc.Login(context.Background(), "jane@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.svc.Login(context.Background(), "jane@example.com", "newsecret")
	assert.NoError(t, err)

	rt, err := f.refresh.GetRefreshToken(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.True(t, rt.IsRevoked())
	assert.Equal(t, u.ID, rt.UserID)

	err = f.svc.ResetPassword(context.Background(), sent[0].Token, "again123")
	assert.ErrorIs(t, err, ErrPasswordResetTokenNotFound)
}
