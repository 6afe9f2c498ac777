package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeConnectivity       = "AUTH_BACKEND_UNREACHABLE"
	textCodeInvalidCredentials = "INVALID_CREDENTIALS"
	textCodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	textCodeValidation         = "AUTH_PAYLOAD_REJECTED"
	textCodeUnknown            = "AUTH_UNKNOWN_FAILURE"
	textCodeInvalidTransition  = "INVALID_SESSION_TRANSITION"
	textCodeStaleCommand       = "STALE_SESSION_COMMAND"
)

// ConnectivityMessage is the fixed human-readable error returned when the
// backend cannot be reached at all.
const ConnectivityMessage = "Cannot connect to the server. Please make sure the backend is running."

// ErrConnectivity is returned for transport-level failures (no network,
// refused connection). Raw transport errors never escape the gateway.
var ErrConnectivity = goerrors.New(ConnectivityMessage, goerrors.CategoryOperation).
	WithTextCode(textCodeConnectivity).
	WithCode(goerrors.CodeInternal)

// ErrInvalidCredentials is returned for HTTP 401 login failures.
var ErrInvalidCredentials = goerrors.New("Invalid email or password", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailNotVerified is returned for HTTP 403 login failures: valid
// credentials, unverified email. Callers detect it to offer a resend action.
var ErrEmailNotVerified = goerrors.New("Please verify your email before logging in", goerrors.CategoryAuth).
	WithTextCode(textCodeEmailNotVerified).
	WithCode(goerrors.CodeForbidden)

// ErrInvalidTransition is returned when a requested session state change is
// not allowed by the transition map.
var ErrInvalidTransition = goerrors.New("invalid session state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrStaleCommand is returned under strict ordering when a session commit
// was built against a superseded snapshot.
var ErrStaleCommand = goerrors.New("session command superseded by a newer mutation", goerrors.CategoryConflict).
	WithTextCode(textCodeStaleCommand).
	WithCode(goerrors.CodeConflict)

// invalidTransitionError clones ErrInvalidTransition with the attempted move
// attached as metadata.
func invalidTransitionError(from, to string) error {
	clone := ErrInvalidTransition.Clone()
	if clone == nil {
		return ErrInvalidTransition
	}
	return clone.WithMetadata(map[string]any{
		"from": from,
		"to":   to,
	})
}

func staleCommandError() error {
	clone := ErrStaleCommand.Clone()
	if clone == nil {
		return ErrStaleCommand
	}
	return clone
}

// connectivityError clones ErrConnectivity with the transport failure as
// source, so the fixed message is what the user sees.
func connectivityError(cause error) error {
	clone := ErrConnectivity.Clone()
	if clone == nil {
		return ErrConnectivity
	}
	clone.Source = cause
	return clone
}

// validationError wraps a server-rejected payload message (4xx other than
// 401/403).
func validationError(message string) error {
	return goerrors.New(message, goerrors.CategoryValidation).
		WithTextCode(textCodeValidation).
		WithCode(goerrors.CodeBadRequest)
}

// unknownError covers uncategorized non-2xx responses; the status code is
// embedded in the message by the caller.
func unknownError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithTextCode(textCodeUnknown).
		WithCode(goerrors.CodeInternal)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsConnectivityError will check for transport failures
func IsConnectivityError(err error) bool {
	if hasTextCode(err, textCodeConnectivity) {
		return true
	}
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "Cannot connect to the server")
}

// IsInvalidCredentialsError will check for 401 login failures
func IsInvalidCredentialsError(err error) bool {
	return hasTextCode(err, textCodeInvalidCredentials)
}

// IsEmailNotVerifiedError will check for the 403 unverified-email condition
func IsEmailNotVerifiedError(err error) bool {
	if hasTextCode(err, textCodeEmailNotVerified) {
		return true
	}
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "verify your email")
}

// IsStaleCommandError will check for rejected stale session commits
func IsStaleCommandError(err error) bool {
	return hasTextCode(err, textCodeStaleCommand)
}

// ErrorMessage extracts the user-facing message from a gateway error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Message
	}
	return err.Error()
}
