package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/grocery-console/internal/apierr"
)

func TestUser_HasRole(t *testing.T) {
	manager := User{Role: RoleManager}

	assert.True(t, manager.HasRole())
	assert.True(t, manager.HasRole(RoleAdmin, RoleManager))
	assert.False(t, manager.HasRole(RoleAdmin))
	assert.False(t, Role("root").Valid())
}

func TestPasswordChange_Validate(t *testing.T) {
	ok := PasswordChange{CurrentPassword: "old", NewPassword: "new", ConfirmPassword: "new"}
	assert.NoError(t, ok.Validate())

	mismatch := PasswordChange{CurrentPassword: "old", NewPassword: "new", ConfirmPassword: "nwe"}
	var verr *apierr.ValidationError
	require.ErrorAs(t, mismatch.Validate(), &verr)
	assert.Equal(t, []string{"Passwords do not match."}, verr.Fields["confirm_password"])
}

func TestRegistration_Validate(t *testing.T) {
	assert.NoError(t, Registration{Username: "bob", Password: "x"}.Validate())
	assert.Error(t, Registration{Username: "bob", Password: "x", Email: "nope"}.Validate())
	assert.Error(t, Credentials{Username: "bob"}.Validate())
}
