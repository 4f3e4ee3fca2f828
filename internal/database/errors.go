package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/uptrace/bun/driver/pgdriver"
)

const uniqueViolation = "23505"

// IsNotFound reports whether err means the query matched no rows
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation reports whether err is a unique constraint failure from
// any of the supported drivers.
func IsUniqueViolation(err error) bool {
	return sqlState(err) == uniqueViolation
}

func sqlState(err error) string {
	if err == nil {
		return ""
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}

	var drvErr pgdriver.Error
	if errors.As(err, &drvErr) {
		return drvErr.Field('C')
	}

	return ""
}

// isRetryableError reports whether a failed read is worth repeating
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Don't retry context errors (timeout, cancellation) or empty results
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || IsNotFound(err) {
		return false
	}

	switch code := sqlState(err); {
	case code == "40001", code == "40P01": // serialization_failure, deadlock_detected
		return true
	case strings.HasPrefix(code, "08"): // connection exceptions
		return true
	case code == "53300", code == "57P03": // too_many_connections, cannot_connect_now
		return true
	case code != "":
		return false
	}

	errMsg := strings.ToLower(err.Error())
	for _, transient := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"bad connection",
		"too many clients",
	} {
		if strings.Contains(errMsg, transient) {
			return true
		}
	}

	return false
}

// WithRetry runs a read up to three times with exponential backoff when it
// fails with a transient connection or serialization error.
func WithRetry(ctx context.Context, operation func() error) error {
	const maxAttempts = 3
	delay := 100 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = operation()
		if lastErr == nil || !isRetryableError(lastErr) || attempt == maxAttempts {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}

	return lastErr
}
