package user

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleCustomer.Valid())
	assert.True(t, RoleFacilityOwner.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("customer").Valid())
	assert.False(t, Role("").Valid())
}

func TestUser_CanSignIn(t *testing.T) {
	assert.True(t, (&User{IsActive: true}).CanSignIn())
	assert.False(t, (&User{IsActive: true, IsBanned: true}).CanSignIn())
	assert.False(t, (&User{IsActive: false}).CanSignIn())
}

func TestCredentialID(t *testing.T) {
	id := uuid.MustParse("7f0c6a1e-4a51-4b8f-9d1a-8c1b0c0f2e11")
	assert.Equal(t, "credentials_7f0c6a1e-4a51-4b8f-9d1a-8c1b0c0f2e11", CredentialID(id))
}
