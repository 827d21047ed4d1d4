package domain

import "time"

// UserRole enumerates the roles the permission rules are keyed on.
type UserRole string

const (
	RoleEndUser UserRole = "END_USER"
	RoleAgent   UserRole = "SUPPORT_AGENT"
	RoleManager UserRole = "SUPPORT_MANAGER"
	RoleAdmin   UserRole = "ADMIN"
)

// Staff reports whether the role belongs to the support organization.
func (r UserRole) Staff() bool {
	return r == RoleAgent || r == RoleManager || r == RoleAdmin
}

// User is the domain model for every authenticated actor, end-users and
// support staff alike.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         UserRole
	Active       bool
	ManagerID    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// ValidRole reports whether r is a known role.
func ValidRole(r UserRole) bool {
	switch r {
	case RoleEndUser, RoleAgent, RoleManager, RoleAdmin:
		return true
	}
	return false
}
