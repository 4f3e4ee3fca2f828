package user

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer      Role = "CUSTOMER"
	RoleFacilityOwner Role = "FACILITY_OWNER"
	RoleAdmin         Role = "ADMIN"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleFacilityOwner, RoleAdmin:
		return true
	}
	return false
}

// CredentialProvider is the provider id of password accounts
const CredentialProvider = "credentials"

type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Phone         *string   `json:"phone,omitempty"`
	Role          Role      `json:"role"`
	EmailVerified bool      `json:"emailVerified"`
	IsActive      bool      `json:"isActive"`
	IsBanned      bool      `json:"isBanned"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CanSignIn reports whether the account may obtain tokens
func (u *User) CanSignIn() bool {
	return u.IsActive && !u.IsBanned
}

// NewUser describes a verified user about to be inserted
type NewUser struct {
	Email string
	Name  string
	Role  Role
}

// Credential is the password account attached to a user
type Credential struct {
	ID           string
	UserID       uuid.UUID
	PasswordHash string
}

// CredentialID is the primary key of the password account for userID
func CredentialID(userID uuid.UUID) string {
	return "credentials_" + userID.String()
}
