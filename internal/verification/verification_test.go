package verification

import (
	"database/sql"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	_ "github.com/lib/pq"

	"github.com/quickcourt/quickcourt-api/internal/database"
)

func TestRecord_IsExpired(t *testing.T) {
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	rec := &Record{ExpiresAt: now.Add(10 * time.Minute)}

	assert.False(t, rec.IsExpired(now))
	assert.False(t, rec.IsExpired(now.Add(9*time.Minute)))
	assert.True(t, rec.IsExpired(now.Add(10*time.Minute)))
	assert.True(t, rec.IsExpired(now.Add(time.Hour)))
}

func TestRecord_RegenerateKeepsSignup(t *testing.T) {
	now := time.Now()
	signup := &PendingSignup{FullName: "Ann", Email: "ann@example.com", Role: "CUSTOMER"}
	rec := &Record{Email: "ann@example.com", Code: "11111", Signup: signup, ExpiresAt: now}

	rec.Regenerate("22222", now, 10*time.Minute)

	assert.Equal(t, "22222", rec.Code)
	assert.Same(t, signup, rec.Signup)
	assert.Equal(t, now, rec.IssuedAt)
	assert.Equal(t, now.Add(10*time.Minute), rec.ExpiresAt)
}

func TestRecord_Matches(t *testing.T) {
	rec := &Record{Code: "12345"}
	assert.True(t, rec.Matches("12345"))
	assert.False(t, rec.Matches("00000"))
	assert.False(t, rec.Matches("1234"))
}

func TestRandomCode_Range(t *testing.T) {
	for range 1000 {
		code := RandomCode()
		require.Len(t, code, CodeLength)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 10000)
		assert.LessOrEqual(t, n, 99999)
	}
}

func TestEncodeDecode_Bundle(t *testing.T) {
	signup := &PendingSignup{FullName: "Ann Lee", Email: "ann@example.com", PasswordHash: "$argon2id$x", Role: "FACILITY_OWNER"}

	value, err := EncodeValue("54321", signup)
	require.NoError(t, err)
	assert.Contains(t, value, `"otp":"54321"`)
	assert.Contains(t, value, `"userData"`)

	code, decoded, err := DecodeValue(value)
	require.NoError(t, err)
	assert.Equal(t, "54321", code)
	assert.Equal(t, signup, decoded)
}

func TestEncodeDecode_CodeOnly(t *testing.T) {
	value, err := EncodeValue("54321", nil)
	require.NoError(t, err)
	assert.Equal(t, "54321", value)

	code, signup, err := DecodeValue(value)
	require.NoError(t, err)
	assert.Equal(t, "54321", code)
	assert.Nil(t, signup)
}

func TestDecodeValue_Corrupt(t *testing.T) {
	for _, value := range []string{"", "garbage", `{"otp":"12"}`, `{"userData":{}}`, `[1,2]`} {
		_, _, err := DecodeValue(value)
		assert.ErrorIs(t, err, ErrCorrupt, value)
	}
}

func TestDecodeValue_BundleWithoutUserData(t *testing.T) {
	code, signup, err := DecodeValue(`{"otp":"77777"}`)
	require.NoError(t, err)
	assert.Equal(t, "77777", code)
	assert.Nil(t, signup)
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	// sql.Open is lazy; the queries below are only rendered, never executed
	sqlDB, err := sql.Open("postgres", "postgres://localhost/none?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewRepository(bun.NewDB(sqlDB, pgdialect.New()))
}

func TestRepository_SaveQueryUpserts(t *testing.T) {
	repo := newTestRepository(t)

	q := repo.saveQuery(&database.Verification{Identifier: "ann@example.com", Value: "12345"}).String()

	assert.Contains(t, q, `INSERT INTO "verifications"`)
	assert.Contains(t, q, `ON CONFLICT (identifier) DO UPDATE`)
	assert.Contains(t, q, `value = EXCLUDED.value`)
	assert.Contains(t, q, `expires_at = EXCLUDED.expires_at`)
}

func TestRepository_ActiveQueryFiltersExpiry(t *testing.T) {
	repo := newTestRepository(t)
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	q := repo.activeQuery(new(database.Verification), "ann@example.com", now).String()

	assert.Contains(t, q, `identifier = 'ann@example.com'`)
	assert.Contains(t, q, `expires_at > '2025-08-01 12:00:00`)
}

func TestToRow_TimestampsFollowIssuedAt(t *testing.T) {
	issued := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	rec := &Record{Email: "ann@example.com", Code: "12345", IssuedAt: issued, ExpiresAt: issued.Add(10 * time.Minute)}

	row, err := toRow(rec)
	require.NoError(t, err)

	assert.Equal(t, "ann@example.com", row.Identifier)
	assert.Equal(t, "12345", row.Value)
	assert.Equal(t, issued, row.CreatedAt)
	assert.Equal(t, issued, row.UpdatedAt)
	assert.Equal(t, 10*time.Minute, row.ExpiresAt.Sub(row.UpdatedAt))

	back, err := toRecord(row)
	require.NoError(t, err)
	assert.Equal(t, issued, back.IssuedAt)
}
