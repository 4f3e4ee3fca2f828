package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

type index struct {
	model   any
	name    string
	columns []string
}

var indexes = []index{
	{(*Verification)(nil), "verifications_expires_at_idx", []string{"expires_at"}},
	{(*RefreshToken)(nil), "refresh_tokens_user_id_idx", []string{"user_id"}},
	{(*Facility)(nil), "facilities_status_idx", []string{"status"}},
	{(*Facility)(nil), "facilities_owner_id_idx", []string{"owner_id"}},
	{(*Court)(nil), "courts_facility_id_idx", []string{"facility_id"}},
	{(*Review)(nil), "reviews_facility_id_idx", []string{"facility_id"}},
	{(*Booking)(nil), "bookings_user_id_idx", []string{"user_id"}},
}

// Migrate creates every table and index that does not exist yet.
// Safe to run repeatedly.
func Migrate(ctx context.Context, db *bun.DB) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range Models() {
			if _, err := tx.NewCreateTable().
				Model(model).
				IfNotExists().
				WithForeignKeys().
				Exec(ctx); err != nil {
				return fmt.Errorf("create table for %T: %w", model, err)
			}
		}

		for _, idx := range indexes {
			if _, err := tx.NewCreateIndex().
				Model(idx.model).
				Index(idx.name).
				Column(idx.columns...).
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("create index %s: %w", idx.name, err)
			}
		}

		return nil
	})
}
