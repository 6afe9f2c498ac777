package auth

import "strings"

// RoleValidator is the role-based access surface exposed by sessions.
type RoleValidator interface {
	// IsAdmin checks if the current role grants admin routes
	IsAdmin() bool

	// HasRole checks case-insensitively for a specific role
	HasRole(role string) bool
}

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch strings.ToUpper(r) {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely normalizes a string into a UserRole, defaulting to USER
// for empty or unknown values.
func ParseRole(roleStr string) (UserRole, bool) {
	if roleStr == "" {
		return RoleUser, false
	}
	role := UserRole(strings.ToUpper(roleStr))
	if IsValidRole(role) {
		return role, true
	}
	return RoleUser, false
}

// GetAllRoles returns the predefined roles in hierarchical order.
func GetAllRoles() []UserRole {
	return []UserRole{RoleUser, RoleAdmin}
}
