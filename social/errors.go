package social

import "github.com/goliatone/go-errors"

// Error codes surfaced to the login page as ?error= query values.
const (
	TextCodeParseError   = "oauth_parse_error"
	TextCodeOAuthFailed  = "oauth_failed"
	TextCodeNetworkError = "network_error"
)

// ErrParse is returned when the provider handed back an embedded user
// payload that cannot be decoded. The credentialed fallback is NOT tried in
// this case: a malformed payload means the handshake itself is suspect.
var ErrParse = errors.New("oauth user payload could not be parsed", errors.CategoryBadInput).
	WithTextCode(TextCodeParseError).
	WithCode(errors.CodeBadRequest)

// ErrFailed is returned when the credentialed success endpoint rejects the
// exchange.
var ErrFailed = errors.New("oauth exchange was rejected", errors.CategoryAuth).
	WithTextCode(TextCodeOAuthFailed).
	WithCode(errors.CodeUnauthorized)

// ErrNetwork is returned when the success endpoint could not be reached.
var ErrNetwork = errors.New("could not reach the oauth success endpoint", errors.CategoryOperation).
	WithTextCode(TextCodeNetworkError).
	WithCode(errors.CodeInternal)

// RedirectCode maps a reconciliation error to the query code appended to the
// login redirect. Unknown errors collapse to the generic failure code.
func RedirectCode(err error) string {
	if err == nil {
		return ""
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		switch richErr.TextCode {
		case TextCodeParseError, TextCodeOAuthFailed, TextCodeNetworkError:
			return richErr.TextCode
		}
	}

	return TextCodeOAuthFailed
}

func cloneWithSource(base *errors.Error, cause error) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	clone.Source = cause
	return clone
}
