package verification

import (
	"crypto/subtle"
	"errors"
	"math/rand/v2"
	"strconv"
	"time"
)

var (
	ErrNotFound = errors.New("verification record not found or expired")
	// ErrCorrupt means the stored value could not be decoded
	ErrCorrupt = errors.New("verification data is invalid")
)

// CodeLength is the number of digits in a one-time code
const CodeLength = 5

// PendingSignup is the user data captured at signup and held until the
// email address is confirmed.
type PendingSignup struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	Role         string `json:"role"`
}

// Record is a pending verification for one email address. A record with a
// nil Signup was created by a resend without a prior signup and can never
// complete verification.
type Record struct {
	Email     string
	Code      string
	Signup    *PendingSignup
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the code is no longer accepted at now
func (r *Record) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// HasSignup reports whether the record carries signup data
func (r *Record) HasSignup() bool {
	return r.Signup != nil
}

// Matches compares code against the stored one in constant time
func (r *Record) Matches(code string) bool {
	return subtle.ConstantTimeCompare([]byte(r.Code), []byte(code)) == 1
}

// Regenerate replaces the code and pushes the expiry to now+ttl, keeping
// any signup data.
func (r *Record) Regenerate(code string, now time.Time, ttl time.Duration) {
	r.Code = code
	r.IssuedAt = now
	r.ExpiresAt = now.Add(ttl)
}

// CodeGenerator produces one-time codes
type CodeGenerator func() string

// RandomCode returns a 5-digit code in [10000, 99999]. The codes are short
// lived and attempt-limited so a non-cryptographic source is used.
func RandomCode() string {
	return strconv.Itoa(10000 + rand.IntN(90000))
}
