package user

import (
	"slices"
	"strings"

	"github.com/xenking/grocery-console/internal/apierr"
)

// Role decides which dashboards and mutations a user may reach.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleCustomer Role = "customer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCustomer:
		return true
	}
	return false
}

// User is the authenticated account as returned by /users/me/.
type User struct {
	ID        int64
	Username  string
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Role      Role
}

// EntityID implements resource.Entity.
func (u User) EntityID() int64 { return u.ID }

// HasRole reports whether u holds any of roles. An empty roles list admits
// every authenticated user.
func (u User) HasRole(roles ...Role) bool {
	if len(roles) == 0 {
		return true
	}
	return slices.Contains(roles, u.Role)
}

// Credentials are exchanged for a bearer token.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Validate() error {
	verr := apierr.NewValidationError()
	if strings.TrimSpace(c.Username) == "" {
		verr.Add("username", "This field is required.")
	}
	if c.Password == "" {
		verr.Add("password", "This field is required.")
	}
	return verr.OrNil()
}

// Registration creates a new customer account.
type Registration struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

func (r Registration) Validate() error {
	verr := apierr.NewValidationError()
	if strings.TrimSpace(r.Username) == "" {
		verr.Add("username", "This field is required.")
	}
	if r.Password == "" {
		verr.Add("password", "This field is required.")
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		verr.Add("email", "Enter a valid email address.")
	}
	return verr.OrNil()
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

func (p ProfileUpdate) Validate() error {
	verr := apierr.NewValidationError()
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		verr.Add("email", "Enter a valid email address.")
	}
	return verr.OrNil()
}

// PasswordChange replaces the account password.
type PasswordChange struct {
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

func (p PasswordChange) Validate() error {
	verr := apierr.NewValidationError()
	if p.CurrentPassword == "" {
		verr.Add("current_password", "This field is required.")
	}
	if p.NewPassword == "" {
		verr.Add("new_password", "This field is required.")
	}
	if p.NewPassword != p.ConfirmPassword {
		verr.Add("confirm_password", "Passwords do not match.")
	}
	return verr.OrNil()
}
