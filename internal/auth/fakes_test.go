package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quickcourt/quickcourt-api/internal/user"
	"github.com/quickcourt/quickcourt-api/internal/verification"
)

// memStore backs the user, verification and signup fakes so that
// CompleteSignup sees the same state as the repositories.
type memStore struct {
	mu            sync.Mutex
	users         map[string]*user.User
	creds         map[uuid.UUID]string
	verifications map[string]verification.Record
	corrupt       map[string]bool
	failSignup    error
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[string]*user.User{},
		creds:         map[uuid.UUID]string{},
		verifications: map[string]verification.Record{},
		corrupt:       map[string]bool{},
	}
}

func (m *memStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[email]
	return ok, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memStore) GetCredential(_ context.Context, userID uuid.UUID) (*user.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.creds[userID]
	if !ok {
		return nil, user.ErrCredentialNotFound
	}
	return &user.Credential{ID: user.CredentialID(userID), UserID: userID, PasswordHash: hash}, nil
}

func (m *memStore) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[userID]; !ok {
		return user.ErrCredentialNotFound
	}
	m.creds[userID] = passwordHash
	return nil
}

func (m *memStore) Save(_ context.Context, rec *verification.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	if rec.Signup != nil {
		s := *rec.Signup
		cp.Signup = &s
	}
	m.verifications[rec.Email] = cp
	delete(m.corrupt, rec.Email)
	return nil
}

func (m *memStore) find(email string) (*verification.Record, error) {
	rec, ok := m.verifications[email]
	if !ok {
		return nil, verification.ErrNotFound
	}
	if m.corrupt[email] {
		return &verification.Record{Email: email, ExpiresAt: rec.ExpiresAt}, verification.ErrCorrupt
	}
	cp := rec
	if rec.Signup != nil {
		s := *rec.Signup
		cp.Signup = &s
	}
	return &cp, nil
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*verification.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(email)
}

func (m *memStore) FindActive(_ context.Context, email string, now time.Time) (*verification.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.verifications[email]
	if !ok || !rec.ExpiresAt.After(now) {
		return nil, verification.ErrNotFound
	}
	return m.find(email)
}

func (m *memStore) CompleteSignup(_ context.Context, identifier string, signup verification.PendingSignup) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSignup != nil {
		return nil, m.failSignup
	}
	if _, ok := m.users[signup.Email]; ok {
		return nil, user.ErrDuplicateEmail
	}
	u := &user.User{
		ID:            uuid.New(),
		Email:         signup.Email,
		Name:          signup.FullName,
		Role:          user.Role(signup.Role),
		EmailVerified: true,
		IsActive:      true,
	}
	m.users[u.Email] = u
	m.creds[u.ID] = signup.PasswordHash
	delete(m.verifications, identifier)
	return u, nil
}

func (m *memStore) addUser(email, password string, role user.Role) *user.User {
	hash, err := HashPassword(password)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &user.User{ID: uuid.New(), Email: email, Name: "Test", Role: role, EmailVerified: true, IsActive: true}
	m.users[email] = u
	m.creds[u.ID] = hash
	return u
}

func (m *memStore) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *memStore) record(email string) (verification.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.verifications[email]
	return rec, ok
}

type memRefreshTokens struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
}

func newMemRefreshTokens() *memRefreshTokens {
	return &memRefreshTokens{tokens: map[string]*RefreshToken{}}
}

func (m *memRefreshTokens) StoreRefreshToken(_ context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[hashToken(token)] = &RefreshToken{ID: uuid.New(), UserID: userID, TokenHash: hashToken(token), ExpiresAt: expiresAt, CreatedAt: time.Now()}
	return nil
}

func (m *memRefreshTokens) GetRefreshToken(_ context.Context, token string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.tokens[hashToken(token)]
	if !ok {
		return nil, ErrRefreshTokenNotFound
	}
	cp := *rt
	return &cp, nil
}

func (m *memRefreshTokens) RevokeRefreshToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.tokens[hashToken(token)]
	if !ok || rt.RevokedAt != nil {
		return ErrRefreshTokenNotFound
	}
	now := time.Now()
	rt.RevokedAt = &now
	return nil
}

func (m *memRefreshTokens) RevokeAllUserTokens(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, rt := range m.tokens {
		if rt.UserID == userID && rt.RevokedAt == nil {
			rt.RevokedAt = &now
		}
	}
	return nil
}

func (m *memRefreshTokens) CleanupExpiredTokens(context.Context) error { return nil }

type memResets struct {
	mu     sync.Mutex
	tokens map[string]uuid.UUID
}

func (m *memResets) StorePasswordResetToken(_ context.Context, userID uuid.UUID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = userID
	return nil
}

func (m *memResets) GetPasswordResetToken(_ context.Context, token string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.tokens[token]
	if !ok {
		return uuid.Nil, ErrPasswordResetTokenNotFound
	}
	return id, nil
}

func (m *memResets) DeletePasswordResetToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

func (m *memResets) only() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tok := range m.tokens {
		return tok
	}
	return ""
}

type sentEmail struct {
	Kind, To, Code, Name, Token string
}

type recordingEmail struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (e *recordingEmail) add(m sentEmail) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, m)
	return e.err
}

func (e *recordingEmail) SendOTPEmail(_ context.Context, to, code, name string) error {
	return e.add(sentEmail{Kind: "otp", To: to, Code: code, Name: name})
}

func (e *recordingEmail) SendWelcomeEmail(_ context.Context, to, name string) error {
	return e.add(sentEmail{Kind: "welcome", To: to, Name: name})
}

func (e *recordingEmail) SendPasswordResetEmail(_ context.Context, to, token string) error {
	return e.add(sentEmail{Kind: "password_reset", To: to, Token: token})
}

func (e *recordingEmail) all() []sentEmail {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sentEmail(nil), e.sent...)
}

// allowAll never limits unless verifyLimit is set; counters are kept to
// assert on
type allowAll struct {
	mu             sync.Mutex
	verifyAttempts map[string]int
	verifyLimit    int
	ipPurposes     []string
	blockIP        bool
}

func (l *allowAll) CheckIPRateLimitWithPurpose(context.Context, string, string) (bool, error) {
	return l.blockIP, nil
}

func (l *allowAll) RecordIPRequestWithPurpose(_ context.Context, _ string, purpose string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ipPurposes = append(l.ipPurposes, purpose)
	return nil
}

func (l *allowAll) CheckEmailCooldown(context.Context, string) (bool, error) { return false, nil }
func (l *allowAll) SetEmailCooldown(context.Context, string) error           { return nil }

func (l *allowAll) CheckVerifyAttempts(_ context.Context, email string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verifyLimit > 0 && l.verifyAttempts[email] >= l.verifyLimit, nil
}

func (l *allowAll) RecordVerifyAttempt(_ context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.verifyAttempts == nil {
		l.verifyAttempts = map[string]int{}
	}
	l.verifyAttempts[email]++
	return nil
}

func (l *allowAll) ResetVerifyAttempts(_ context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.verifyAttempts, email)
	return nil
}
