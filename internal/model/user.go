package model

import "time"

// User represents an account.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles. Admins see every overview and may roll back history; regular
// users see only their explicit allow-list.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// IsAdmin reports whether the user has administrative privileges.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
