package domain

import "time"

// Role is the privilege level attached to a user account.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User models an account that can authenticate and own advertisements.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// SessionVersion is bumped by every username, password or role change.
	// Session tokens carry the version they were issued for.
	SessionVersion int64 `json:"-"`
}

// UserPatch carries the fields eligible for a partial user update.
// A nil field leaves the stored value untouched.
type UserPatch struct {
	Username *string
	Password *string
	Role     *Role
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Username == nil && p.Password == nil && p.Role == nil
}

// Identity is the authenticated caller on whose behalf an operation runs.
type Identity struct {
	UserID   int64
	Username string
	Role     Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// IdentityOf builds the identity for a stored user.
func IdentityOf(u *User) Identity {
	return Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}
