// Package auth resolves the caller's identity from session cookies.
package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bakery_shop/internal/identity"
	"github.com/Skotchmaster/bakery_shop/internal/logging"
	"github.com/Skotchmaster/bakery_shop/internal/service"
	"github.com/Skotchmaster/bakery_shop/internal/tokens"
)

const identityKey = "identity"

// Sessions is satisfied by *service.AuthService.
type Sessions interface {
	IdentityFromAccess(accessToken string) (identity.User, error)
	Refresh(ctx context.Context, refreshToken string) (*service.Session, error)
}

type SessionMiddleware struct {
	Sessions Sessions
	Secure   bool
}

func NewSessionMiddleware(s Sessions, secure bool) *SessionMiddleware {
	return &SessionMiddleware{Sessions: s, Secure: secure}
}

// Resolve never rejects a request: a missing or broken session is a guest.
// An expired access token is renewed through the refresh token.
func (m *SessionMiddleware) Resolve(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		who := m.identify(c)
		c.Set(identityKey, who)

		if u, ok := who.(identity.User); ok {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("user_id", u.ID)
			c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx, l)))
		}
		return next(c)
	}
}

func (m *SessionMiddleware) identify(c echo.Context) identity.Identity {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("middleware", "auth.session")

	access := cookieValue(c, tokens.AccessCookie)
	if access != "" {
		u, err := m.Sessions.IdentityFromAccess(access)
		if err == nil {
			return u
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			l.Warn("session_rejected", "reason", "invalid access token", "error", err)
			ClearSessionCookies(c, m.Secure)
			return identity.Guest{}
		}
	}

	refresh := cookieValue(c, tokens.RefreshCookie)
	if refresh == "" {
		if access != "" {
			ClearSessionCookies(c, m.Secure)
		}
		return identity.Guest{}
	}

	sess, err := m.Sessions.Refresh(ctx, refresh)
	if errors.Is(err, service.ErrSessionRotated) && sess != nil {
		// the request that won the rotation sets the new cookies
		l.Info("session_refresh_raced", "user_id", sess.User.ID)
		return sess.User
	}
	if err != nil {
		l.Warn("session_refresh_failed", "error", err)
		ClearSessionCookies(c, m.Secure)
		return identity.Guest{}
	}
	SetSessionCookies(c, sess, m.Secure)
	return sess.User
}

func SetSessionCookies(c echo.Context, sess *service.Session, secure bool) {
	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, sess.AccessToken, "/", sess.AccessExp, secure))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, sess.RefreshToken, "/", sess.RefreshExp, secure))
}

func ClearSessionCookies(c echo.Context, secure bool) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/", secure))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/", secure))
}

// CurrentIdentity is Guest when Resolve did not run.
func CurrentIdentity(c echo.Context) identity.Identity {
	if who, ok := c.Get(identityKey).(identity.Identity); ok {
		return who
	}
	return identity.Guest{}
}

func CurrentUser(c echo.Context) (identity.User, bool) {
	return identity.Authenticated(CurrentIdentity(c))
}

// RequireLogin sends guests to the sign-in page; GET requests come back
// to where they started.
func RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := CurrentUser(c); ok {
			return next(c)
		}
		target := "/signin/"
		if c.Request().Method == http.MethodGet {
			target += "?next=" + url.QueryEscape(c.Request().RequestURI)
		}
		return c.Redirect(http.StatusSeeOther, target)
	}
}

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, ok := CurrentUser(c)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		if !u.IsAdmin() {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return next(c)
	}
}

func cookieValue(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

var _ Sessions = (*service.AuthService)(nil)
