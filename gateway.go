package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-print"
)

// HTTPGateway is the Gateway implementation over the REST auth API. It is
// the single place raw transport and status-code handling happens; callers
// only ever see typed results or categorized errors.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	store   Store
	logger  Logger
	debug   bool
}

var _ Gateway = (*HTTPGateway)(nil)

// GatewayOption customizes HTTPGateway construction.
type GatewayOption func(*HTTPGateway)

// WithGatewayLogger overrides the default logger.
func WithGatewayLogger(logger Logger) GatewayOption {
	return func(g *HTTPGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *HTTPGateway) {
		if client != nil {
			g.client = client
		}
	}
}

// WithGatewayDebug dumps request/response payloads through the logger.
func WithGatewayDebug(debug bool) GatewayOption {
	return func(g *HTTPGateway) {
		g.debug = debug
	}
}

// NewHTTPGateway creates a gateway against the given backend origin. The
// store receives the bearer token and user on successful login.
func NewHTTPGateway(baseURL string, store Store, opts ...GatewayOption) *HTTPGateway {
	g := &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		store:   store,
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

type loginEnvelope struct {
	Token   string `json:"token"`
	User    *User  `json:"user"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

type registerEnvelope struct {
	User      *User  `json:"user"`
	Message   string `json:"message"`
	Error     string `json:"error"`
	EmailSent bool   `json:"emailSent"`
}

type messageEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Success *bool  `json:"success"`
}

// do issues the request and reads the body. Transport failures collapse to
// the fixed connectivity error.
func (g *HTTPGateway) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		if g.debug {
			g.logger.Debug("auth request %s %s: %s", method, path, print.MaybePrettyJSON(string(data)))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("auth request %s %s failed: %v", method, path, err)
		return 0, nil, connectivityError(err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, connectivityError(err)
	}

	if g.debug {
		g.logger.Debug("auth response %s %s [%d]: %s", method, path, res.StatusCode, print.MaybePrettyJSON(string(data)))
	}

	return res.StatusCode, data, nil
}

// serverMessage pulls the human message out of an error body, preferring the
// explicit error field.
func serverMessage(data []byte) string {
	var env messageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ""
	}
	if env.Error != "" {
		return env.Error
	}
	return env.Message
}

func (g *HTTPGateway) Register(ctx context.Context, reg Registration) (*RegisterResult, error) {
	// The role is pinned to USER here; callers cannot self-assign one.
	payload := struct {
		Registration
		Role string `json:"role"`
	}{Registration: reg, Role: string(RoleUser)}

	status, data, err := g.do(ctx, http.MethodPost, "/api/auth/register", payload)
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		if msg := serverMessage(data); msg != "" {
			return nil, validationError(msg)
		}
		return nil, unknownError(fmt.Sprintf("Registration failed: %d", status))
	}

	var env registerEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		g.logger.Warn("register response parse: %v", err)
	}

	return &RegisterResult{
		User:      env.User,
		Message:   env.Message,
		EmailSent: env.EmailSent,
	}, nil
}

func (g *HTTPGateway) Login(ctx context.Context, email, password string, rememberMe bool) (*LoginResult, error) {
	payload := map[string]any{
		"email":      email,
		"password":   password,
		"rememberMe": rememberMe,
	}

	status, data, err := g.do(ctx, http.MethodPost, "/api/auth/login", payload)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusForbidden:
		// Valid credentials, unverified email. Keep the server's wording
		// when it gives one so resend instructions come through.
		if msg := serverMessage(data); msg != "" {
			clone := ErrEmailNotVerified.Clone()
			if clone != nil {
				clone.Message = msg
				return nil, clone
			}
		}
		return nil, ErrEmailNotVerified
	case status == http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	case status < 200 || status >= 300:
		if msg := serverMessage(data); msg != "" {
			return nil, validationError(msg)
		}
		return nil, unknownError(fmt.Sprintf("Login failed: %d", status))
	}

	var env loginEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, unknownError("Login succeeded but the response could not be read")
	}

	if env.Token != "" {
		if err := g.store.SetToken(ctx, env.Token); err != nil {
			return nil, err
		}
	}
	if env.User != nil {
		if err := g.store.SetUser(ctx, env.User); err != nil {
			return nil, err
		}
	}

	if rememberMe {
		if err := g.store.SetString(ctx, KeyRememberMe, "true"); err != nil {
			return nil, err
		}
		if err := g.store.SetString(ctx, KeySavedEmail, email); err != nil {
			return nil, err
		}
	} else {
		if err := g.store.Delete(ctx, KeyRememberMe, KeySavedEmail); err != nil {
			return nil, err
		}
	}

	return &LoginResult{User: env.User, Message: env.Message}, nil
}

func (g *HTTPGateway) ForgotPassword(ctx context.Context, email string) (*MessageResult, error) {
	payload := map[string]string{"email": email}
	return g.messageCall(ctx, http.MethodPost, "/api/auth/forgot-password", payload, "Password reset request failed")
}

func (g *HTTPGateway) ResetPassword(ctx context.Context, token, newPassword string) (*MessageResult, error) {
	payload := map[string]string{
		"token":       token,
		"newPassword": newPassword,
	}
	return g.messageCall(ctx, http.MethodPost, "/api/auth/reset-password", payload, "Password reset failed")
}

func (g *HTTPGateway) ResendVerification(ctx context.Context, email string) (*MessageResult, error) {
	payload := map[string]string{"email": email}
	return g.messageCall(ctx, http.MethodPost, "/api/auth/resend-verification", payload, "Could not resend the verification email")
}

// VerifyEmail confirms an email verification token. Success requires BOTH a
// 2xx status and an affirmative body: a 200 with success=false is a failure.
func (g *HTTPGateway) VerifyEmail(ctx context.Context, token string) (*MessageResult, error) {
	path := "/api/auth/verify?token=" + url.QueryEscape(token)

	status, data, err := g.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var env messageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		g.logger.Warn("verify-email response parse: %v", err)
	}

	failMsg := env.Error
	if failMsg == "" {
		failMsg = env.Message
	}
	if failMsg == "" {
		failMsg = "Email verification failed"
	}

	if status < 200 || status >= 300 {
		return nil, validationError(failMsg)
	}
	if env.Success != nil && !*env.Success {
		return nil, validationError(failMsg)
	}

	return &MessageResult{Message: env.Message}, nil
}

// Logout clears the local session. There is no server-side session to end,
// so no request is made.
func (g *HTTPGateway) Logout(ctx context.Context) error {
	return g.store.Logout(ctx)
}

func (g *HTTPGateway) messageCall(ctx context.Context, method, path string, payload any, failMsg string) (*MessageResult, error) {
	status, data, err := g.do(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		if msg := serverMessage(data); msg != "" {
			return nil, validationError(msg)
		}
		return nil, unknownError(fmt.Sprintf("%s: %d", failMsg, status))
	}

	var env messageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		g.logger.Warn("response parse %s: %v", path, err)
	}

	return &MessageResult{Message: env.Message}, nil
}
