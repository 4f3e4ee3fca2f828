package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/quickcourt/quickcourt-api/internal/database"
)

// Repository persists verification records, one per email address
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx bun.Tx) *Repository {
	return &Repository{db: tx}
}

// Save creates the record for rec.Email or overwrites the existing one.
// Concurrent saves for one email converge on a single row.
func (r *Repository) Save(ctx context.Context, rec *Record) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}

	if _, err := r.saveQuery(row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to save verification: %w", err)
	}
	return nil
}

func (r *Repository) saveQuery(row *database.Verification) *bun.InsertQuery {
	return r.db.NewInsert().
		Model(row).
		On("CONFLICT (identifier) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("expires_at = EXCLUDED.expires_at").
		Set("updated_at = EXCLUDED.updated_at")
}

// FindByEmail returns the record for email regardless of expiry.
// Undecodable values yield ErrCorrupt alongside the record's expiry.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*Record, error) {
	row := new(database.Verification)
	err := r.db.NewSelect().
		Model(row).
		Where("identifier = ?", email).
		Scan(ctx)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}

	return toRecord(row)
}

// FindActive returns the record for email only if it expires after now
func (r *Repository) FindActive(ctx context.Context, email string, now time.Time) (*Record, error) {
	row := new(database.Verification)
	err := r.activeQuery(row, email, now).Scan(ctx)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}

	return toRecord(row)
}

func (r *Repository) activeQuery(row *database.Verification, email string, now time.Time) *bun.SelectQuery {
	return r.db.NewSelect().
		Model(row).
		Where("identifier = ?", email).
		Where("expires_at > ?", now)
}

// Delete removes the record for email
func (r *Repository) Delete(ctx context.Context, email string) error {
	_, err := r.db.NewDelete().
		Model((*database.Verification)(nil)).
		Where("identifier = ?", email).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete verification: %w", err)
	}
	return nil
}

// DeleteExpired removes every record whose expiry is not after now
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.Verification)(nil)).
		Where("expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired verifications: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// toRow stamps both timestamps with rec.IssuedAt so they share the clock
// that computed the expiry
func toRow(rec *Record) (*database.Verification, error) {
	value, err := EncodeValue(rec.Code, rec.Signup)
	if err != nil {
		return nil, err
	}
	return &database.Verification{
		ID:         uuid.New(),
		Identifier: rec.Email,
		Value:      value,
		ExpiresAt:  rec.ExpiresAt,
		CreatedAt:  rec.IssuedAt,
		UpdatedAt:  rec.IssuedAt,
	}, nil
}

func toRecord(row *database.Verification) (*Record, error) {
	rec := &Record{Email: row.Identifier, IssuedAt: row.UpdatedAt, ExpiresAt: row.ExpiresAt}

	code, signup, err := DecodeValue(row.Value)
	if err != nil {
		return rec, err
	}
	rec.Code = code
	rec.Signup = signup
	return rec, nil
}
