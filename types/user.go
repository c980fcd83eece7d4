package types

import "time"

// Roles recognized by the system, ordered by privilege:
// super_admin > admin > moderator.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleModerator  = "moderator"
)

// IsAssignableRole reports whether role may be granted through the admin API.
// The super_admin role exists only for the bootstrap account.
func IsAssignableRole(role string) bool {
	return role == RoleAdmin || role == RoleModerator
}

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the user's login identity, stored lowercase.
	Email string `json:"email" db:"email"`

	// Role indicates the user's authorization level within the system
	// ("super_admin", "admin", or "moderator").
	Role string `json:"role" db:"role"`

	// IsActive marks whether the account may authenticate. Deactivated
	// accounts keep their row but are rejected at login and at the
	// authorization gate.
	IsActive bool `json:"is_active" db:"is_active"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedBy references the account that created this one.
	// Nil for the bootstrap super admin.
	CreatedBy *int `json:"created_by,omitempty" db:"created_by"`

	// CreatedByEmail is the creator's email, populated on admin reads.
	CreatedByEmail *string `json:"created_by_email,omitempty" db:"created_by_email"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// LastLogin is the timestamp of the most recent successful login.
	LastLogin *time.Time `json:"last_login,omitempty" db:"last_login"`
}
