package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/quickcourt/quickcourt-api/internal/database"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrCredentialNotFound = errors.New("credential not found")
)

// Repository handles user and credential persistence. It accepts any
// bun.IDB so the same code runs inside a transaction.
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

// Create inserts a verified, active user
func (r *Repository) Create(ctx context.Context, nu NewUser) (*User, error) {
	now := time.Now()
	dbUser := &database.User{
		ID:            uuid.New(),
		Email:         nu.Email,
		Name:          nu.Name,
		Role:          string(nu.Role),
		EmailVerified: true,
		IsActive:      true,
		IsBanned:      false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// CreateCredential inserts the password account for userID
func (r *Repository) CreateCredential(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	now := time.Now()
	account := &database.Account{
		ID:         CredentialID(userID),
		UserID:     userID,
		ProviderID: CredentialProvider,
		AccountID:  userID.String(),
		Password:   &passwordHash,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := r.db.NewInsert().Model(account).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}

	return nil
}

// ExistsByEmail reports whether a user with email exists
func (r *Repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*database.User)(nil)).
		Where("email = ?", email).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", email).
		Scan(ctx)

	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetCredential returns the password account of userID
func (r *Repository) GetCredential(ctx context.Context, userID uuid.UUID) (*Credential, error) {
	account := new(database.Account)
	err := r.db.NewSelect().
		Model(account).
		Where("user_id = ?", userID).
		Where("provider_id = ?", CredentialProvider).
		Scan(ctx)

	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	cred := &Credential{ID: account.ID, UserID: account.UserID}
	if account.Password != nil {
		cred.PasswordHash = *account.Password
	}
	return cred, nil
}

// UpdatePassword replaces the password hash of userID's credential
func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	result, err := r.db.NewUpdate().
		Model((*database.Account)(nil)).
		Set("password = ?", passwordHash).
		Set("updated_at = NOW()").
		Where("user_id = ?", userID).
		Where("provider_id = ?", CredentialProvider).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCredentialNotFound
	}

	return nil
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:            dbu.ID,
		Email:         dbu.Email,
		Name:          dbu.Name,
		Phone:         dbu.Phone,
		Role:          Role(dbu.Role),
		EmailVerified: dbu.EmailVerified,
		IsActive:      dbu.IsActive,
		IsBanned:      dbu.IsBanned,
		CreatedAt:     dbu.CreatedAt,
		UpdatedAt:     dbu.UpdatedAt,
	}
}
