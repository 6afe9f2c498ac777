package social

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController handles the OAuth callback route.
type HTTPController struct {
	reconciler *Reconciler
	config     HTTPConfig
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// CallbackPath is the route the provider redirects back to
	// (default: "/oauth/callback")
	CallbackPath string

	// SuccessRedirect is the destination after a reconciled login
	// (default: "/profile")
	SuccessRedirect string

	// ErrorRedirect receives the error code as ?error= (default: "/login")
	ErrorRedirect string

	// ErrorHandler handles errors instead of the redirect (optional)
	ErrorHandler func(ctx router.Context, err error) error
}

// NewHTTPController creates the OAuth callback controller.
func NewHTTPController(reconciler *Reconciler, cfg HTTPConfig) *HTTPController {
	if cfg.CallbackPath == "" {
		cfg.CallbackPath = "/oauth/callback"
	}
	if cfg.SuccessRedirect == "" {
		cfg.SuccessRedirect = "/profile"
	}
	if cfg.ErrorRedirect == "" {
		cfg.ErrorRedirect = "/login"
	}

	return &HTTPController{
		reconciler: reconciler,
		config:     cfg,
	}
}

// RegisterRoutes registers the callback route.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get(c.config.CallbackPath, c.Callback)
}

// Callback finishes the provider handshake. The redirect target replaces the
// callback URL in history either way: the callback page is never a place to
// come back to.
func (c *HTTPController) Callback(ctx router.Context) error {
	embedded := ctx.Query("user")

	if _, err := c.reconciler.Reconcile(ctx.Context(), embedded); err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.Redirect(c.config.SuccessRedirect, http.StatusTemporaryRedirect)
}

func (c *HTTPController) handleError(ctx router.Context, err error) error {
	if c.config.ErrorHandler != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	redirectURL := appendQueryParam(c.config.ErrorRedirect, "error", RedirectCode(err))
	return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
}

func appendQueryParam(rawURL, key, value string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err == nil {
		query := parsed.Query()
		query.Set(key, value)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
