package auth

import "strings"

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role assigned to every account
	RoleUser UserRole = "USER"
	// RoleAdmin grants access to admin-only routes
	RoleAdmin UserRole = "ADMIN"
)

// User mirrors the profile owned by the backend. It is created server-side
// on registration and refreshed on login, OAuth reconciliation, or session
// restore; the client only caches it.
type User struct {
	ID       int64    `json:"id,omitempty"`
	FullName string   `json:"fullName,omitempty"`
	Email    string   `json:"email,omitempty"`
	Role     UserRole `json:"role,omitempty"`
	Enabled  bool     `json:"enabled,omitempty"`
}

// NormalizedRole uppercases the role for comparison; an absent role
// defaults to USER.
func (u *User) NormalizedRole() UserRole {
	if u == nil || u.Role == "" {
		return RoleUser
	}
	return strings.ToUpper(u.Role)
}

// IsAdmin reports whether the normalized role is ADMIN.
func (u *User) IsAdmin() bool {
	return u.NormalizedRole() == RoleAdmin
}

// HasRole compares roles case-insensitively.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	return u.NormalizedRole() == strings.ToUpper(role)
}

// Storage keys persisted by the Store. Plain strings, no schema versioning.
const (
	KeyToken         = "token"
	KeyUser          = "user"
	KeyRememberMe    = "rememberMe"
	KeySavedEmail    = "savedEmail"
	KeySavedName     = "savedName"
	KeySavedRegEmail = "savedRegEmail"
	KeyPendingAction = "pendingAction"
	KeyTheme         = "theme"
)

// sessionKeys are the entries removed on logout.
var sessionKeys = []string{KeyToken, KeyUser, KeyRememberMe, KeySavedEmail}

// Registration is the payload posted to the register endpoint. The role is
// pinned to USER by the gateway; callers cannot self-assign roles.
type Registration struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the gateway's tagged success payload for login.
type LoginResult struct {
	User    *User  `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
}

// RegisterResult carries the created user and whether a verification email
// was dispatched. Registration success never authenticates the new user.
type RegisterResult struct {
	User      *User  `json:"user,omitempty"`
	Message   string `json:"message,omitempty"`
	EmailSent bool   `json:"emailSent,omitempty"`
}

// MessageResult is the payload for operations that only return a message.
type MessageResult struct {
	Message string `json:"message,omitempty"`
}
