package auth

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Store is the durable, origin-scoped key-value persistence for a session:
// bearer token, serialized user, and auxiliary hints such as remember-me and
// saved form values. Implementations have no network or UI side effects.
type Store interface {
	// GetCurrentUser deserializes the stored user. Missing or malformed
	// data yields (nil, nil): parse failures are logged and treated as
	// "no session", never surfaced to the caller.
	GetCurrentUser(ctx context.Context) (*User, error)
	SetUser(ctx context.Context, user *User) error
	Token(ctx context.Context) (string, bool)
	SetToken(ctx context.Context, token string) error
	GetString(ctx context.Context, key string) (string, bool)
	SetString(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	// Logout removes the token, user, remember-me, and saved-email entries.
	// Safe to call with no prior session.
	Logout(ctx context.Context) error
}

// Gateway is the single normalization boundary over the remote auth API.
// Every operation returns a typed result or a categorized error; callers
// never see raw transport failures.
type Gateway interface {
	Register(ctx context.Context, reg Registration) (*RegisterResult, error)
	Login(ctx context.Context, email, password string, rememberMe bool) (*LoginResult, error)
	ForgotPassword(ctx context.Context, email string) (*MessageResult, error)
	ResetPassword(ctx context.Context, token, newPassword string) (*MessageResult, error)
	ResendVerification(ctx context.Context, email string) (*MessageResult, error)
	VerifyEmail(ctx context.Context, token string) (*MessageResult, error)
	Logout(ctx context.Context) error
}

// Session is the typed surface of the session state machine handed to
// components and guards. It replaces ambient global state with explicit
// injection.
type Session interface {
	User() *User
	State() SessionState
	Loading() bool
	IsAuthenticated() bool
	IsAdmin() bool
	HasRole(role string) bool
	Login(ctx context.Context, email, password string, rememberMe bool) (*LoginResult, error)
	Register(ctx context.Context, reg Registration) (*RegisterResult, error)
	Logout(ctx context.Context) error
	SetUserFromOAuth(ctx context.Context, user *User) (*User, error)
}

// Config holds client options
type Config interface {
	GetBaseURL() string
	GetLoginRoute() string
	GetHomeRoute() string
	GetProfileRoute() string
	GetLoadingView() string
	GetJWKSEndpoint() string
}

// DefaultLogger returns the built-in printf logger.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
