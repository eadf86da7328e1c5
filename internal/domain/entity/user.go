package entity

import "time"

// Role is the access level of a user.
type Role string

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleClient
}

// User is an account stored in the users database.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserCredentials pairs a user with the stored password secret.
// It never leaves the application layer.
type UserCredentials struct {
	User   *User
	Secret string
}
