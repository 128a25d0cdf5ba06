package models

import "time"

// UserRole represents the available roles for plan access control.
type UserRole string

const (
	// RoleAdmin may mutate the plan: generate, merge, publish, reschedule.
	RoleAdmin UserRole = "ADMIN"
	// RoleStaff has read access to plans and what-if checks.
	RoleStaff UserRole = "STAFF"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
