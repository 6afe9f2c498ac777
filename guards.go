package auth

import (
	"net/http"
	"time"

	"github.com/goliatone/go-router"
)

// rejectedRouteCookie remembers where an unauthenticated visitor was headed
// so login can send them back.
const rejectedRouteCookie = "rejected_route"

// RouteGuard gates routes on the injected session. Guards never trigger
// network calls: they only read the session's settled state, and while the
// outcome is unknown they hold the request on the loading view instead of
// guessing a redirect.
type RouteGuard struct {
	session Session
	cfg     Config
	Logger  Logger
}

func NewRouteGuard(session Session, cfg Config) *RouteGuard {
	return &RouteGuard{
		session: session,
		cfg:     cfg,
		Logger:  defLogger{},
	}
}

// RequireAuthenticated admits only authenticated sessions. Anonymous
// visitors are redirected to the login route with their target remembered.
func (g *RouteGuard) RequireAuthenticated() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if g.session.Loading() {
				return c.Render(g.cfg.GetLoadingView(), router.ViewContext{})
			}

			if !g.session.IsAuthenticated() {
				g.Logger.Info("guard rejected anonymous visitor: %s", c.OriginalURL())
				g.setRejectedRoute(c)
				return g.redirect(c, g.cfg.GetLoginRoute())
			}

			return hf(c)
		}
	}
}

// RequireAdmin admits only authenticated sessions with the ADMIN role.
// Authenticated non-admins go home rather than to login: they have a
// session, just not the privilege.
func (g *RouteGuard) RequireAdmin() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if g.session.Loading() {
				return c.Render(g.cfg.GetLoadingView(), router.ViewContext{})
			}

			if !g.session.IsAuthenticated() {
				g.setRejectedRoute(c)
				return g.redirect(c, g.cfg.GetLoginRoute())
			}

			if !g.session.IsAdmin() {
				g.Logger.Info("guard rejected non-admin: %s", c.OriginalURL())
				return g.redirect(c, g.cfg.GetHomeRoute())
			}

			return hf(c)
		}
	}
}

// RequireRole admits authenticated sessions holding the given role,
// case-insensitively.
func (g *RouteGuard) RequireRole(role string) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if g.session.Loading() {
				return c.Render(g.cfg.GetLoadingView(), router.ViewContext{})
			}

			if !g.session.IsAuthenticated() {
				g.setRejectedRoute(c)
				return g.redirect(c, g.cfg.GetLoginRoute())
			}

			if !g.session.HasRole(role) {
				return g.redirect(c, g.cfg.GetHomeRoute())
			}

			return hf(c)
		}
	}
}

// GetRedirect pops the remembered rejected route, falling back to def.
func (g *RouteGuard) GetRedirect(c router.Context, def string) string {
	r := c.Cookies(rejectedRouteCookie)
	if r == "" {
		return def
	}
	g.cookieDel(c, rejectedRouteCookie)
	return r
}

func (g *RouteGuard) setRejectedRoute(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     rejectedRouteCookie,
		Value:    c.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *RouteGuard) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *RouteGuard) redirect(c router.Context, to string) error {
	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect(to, statusCode)
}
