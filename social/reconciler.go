package social

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/webfolio/go-portfolio-auth"
)

// SessionWriter is the slice of the session the reconciler needs: it only
// ever installs an externally authenticated user.
type SessionWriter interface {
	SetUserFromOAuth(ctx context.Context, user *auth.User) (*auth.User, error)
}

// Reconciler turns a completed provider handshake into a local session. Two
// sources are supported, in strict priority order: the user payload embedded
// in the callback URL, and a credentialed call to the backend's success
// endpoint. The embedded payload, when present, is authoritative; a parse
// failure there never falls through to the endpoint.
type Reconciler struct {
	baseURL string
	client  *http.Client
	session SessionWriter
	store   auth.Store
	logger  auth.Logger
}

// ReconcilerOption customizes Reconciler construction.
type ReconcilerOption func(*Reconciler)

// WithReconcilerLogger overrides the default logger.
func WithReconcilerLogger(logger auth.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithReconcilerHTTPClient replaces the underlying http.Client.
func WithReconcilerHTTPClient(client *http.Client) ReconcilerOption {
	return func(r *Reconciler) {
		if client != nil {
			r.client = client
		}
	}
}

// NewReconciler creates a reconciler against the given backend origin. The
// store supplies the bearer token for the credentialed fallback.
func NewReconciler(baseURL string, session SessionWriter, store auth.Store, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		session: session,
		store:   store,
		logger:  auth.DefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Reconcile installs the OAuth user into the session. embedded is the raw
// user query parameter from the callback URL, empty when the provider did
// not include one.
func (r *Reconciler) Reconcile(ctx context.Context, embedded string) (*auth.User, error) {
	if embedded != "" {
		return r.fromEmbedded(ctx, embedded)
	}
	return r.fromSuccessEndpoint(ctx)
}

func (r *Reconciler) fromEmbedded(ctx context.Context, embedded string) (*auth.User, error) {
	raw, err := url.QueryUnescape(embedded)
	if err != nil {
		r.logger.Error("oauth embedded user unescape: %v", err)
		return nil, cloneWithSource(ErrParse, err)
	}

	user := new(auth.User)
	if err := json.Unmarshal([]byte(raw), user); err != nil {
		r.logger.Error("oauth embedded user parse: %v", err)
		return nil, cloneWithSource(ErrParse, err)
	}

	return r.session.SetUserFromOAuth(ctx, user)
}

func (r *Reconciler) fromSuccessEndpoint(ctx context.Context) (*auth.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/oauth/success", nil)
	if err != nil {
		return nil, cloneWithSource(ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	if token, ok := r.store.Token(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("oauth success endpoint: %v", err)
		return nil, cloneWithSource(ErrNetwork, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		r.logger.Warn("oauth success endpoint status %d", res.StatusCode)
		return nil, ErrFailed
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, cloneWithSource(ErrNetwork, err)
	}

	var envelope struct {
		Success *bool      `json:"success"`
		User    *auth.User `json:"user"`
		Token   string     `json:"token"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		// The endpoint answered but with garbage; treat it as a rejected
		// exchange, not a parse error, so the login page shows the right
		// affordance.
		r.logger.Error("oauth success response parse: %v", err)
		return nil, cloneWithSource(ErrFailed, err)
	}

	// A body that reports failure is a rejected exchange even when it still
	// carries a user object.
	if envelope.Success != nil && !*envelope.Success {
		return nil, ErrFailed
	}

	if envelope.User == nil {
		return nil, ErrFailed
	}

	if envelope.Token != "" {
		if err := r.store.SetToken(ctx, envelope.Token); err != nil {
			return nil, err
		}
	}

	return r.session.SetUserFromOAuth(ctx, envelope.User)
}
