package auth

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/quickcourt/quickcourt-api/internal/user"
	"github.com/quickcourt/quickcourt-api/internal/verification"
)

// BunSignupStore completes signups inside a single database transaction
type BunSignupStore struct {
	db            *bun.DB
	users         *user.Repository
	verifications *verification.Repository
}

func NewSignupStore(db *bun.DB, users *user.Repository, verifications *verification.Repository) *BunSignupStore {
	return &BunSignupStore{db: db, users: users, verifications: verifications}
}

// CompleteSignup inserts the user and its credential and deletes the
// verification record. Nothing is written unless all three succeed.
func (s *BunSignupStore) CompleteSignup(ctx context.Context, identifier string, signup verification.PendingSignup) (*user.User, error) {
	email := signup.Email
	if email == "" {
		email = identifier
	}

	var created *user.User
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		users := s.users.WithTx(tx)

		u, err := users.Create(ctx, user.NewUser{
			Email: email,
			Name:  signup.FullName,
			Role:  user.Role(signup.Role),
		})
		if err != nil {
			return err
		}

		if err := users.CreateCredential(ctx, u.ID, signup.PasswordHash); err != nil {
			return err
		}

		if err := s.verifications.WithTx(tx).Delete(ctx, identifier); err != nil {
			return err
		}

		created = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("complete signup: %w", err)
	}

	return created, nil
}
