package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bakery_shop/internal/logging"
	"github.com/Skotchmaster/bakery_shop/internal/middleware/auth"
	"github.com/Skotchmaster/bakery_shop/internal/service"
	"github.com/Skotchmaster/bakery_shop/internal/tokens"
	"github.com/Skotchmaster/bakery_shop/internal/transport"
)

const badCredentials = "Please enter a correct username and password. Note that both fields may be case-sensitive."

type AuthHTTP struct {
	site
	Svc *service.AuthService
}

type signInPage struct {
	Username string
	Next     string
	Error    string
}

type signUpPage struct {
	Form   transport.SignUpForm
	Errors map[string]string
}

func (h *AuthHTTP) SignInForm(c echo.Context) error {
	next, _ := localPath(c.QueryParam("next"))
	return h.render(c, http.StatusOK, "signin", signInPage{Next: next})
}

func (h *AuthHTTP) SignIn(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signin")

	var form transport.SignInForm
	if err := c.Bind(&form); err != nil {
		l.Warn("signin_failed", "status", 400, "reason", "invalid form", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	next, _ := localPath(form.Next)

	sess, err := h.Svc.SignIn(ctx, form)
	if err != nil {
		page := signInPage{Username: form.Username, Next: next, Error: badCredentials}
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			l.Warn("signin_failed", "status", 401, "reason", "bad credentials")
			return h.render(c, http.StatusUnauthorized, "signin", page)
		case errors.Is(err, service.ErrValidation):
			l.Warn("signin_failed", "status", 422, "reason", "invalid form")
			page.Error = "Enter both your username and password."
			return h.render(c, http.StatusUnprocessableEntity, "signin", page)
		}
		l.Error("signin_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot sign in")
	}

	auth.SetSessionCookies(c, sess, h.CookieSecure)
	h.flash(c, "Welcome back, "+sess.User.Username+".")
	l.Info("signin_success", "user_id", sess.User.ID)
	if next == "" {
		next = "/"
	}
	return c.Redirect(http.StatusSeeOther, next)
}

func (h *AuthHTTP) SignUpForm(c echo.Context) error {
	return h.render(c, http.StatusOK, "signup", signUpPage{})
}

func (h *AuthHTTP) SignUp(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signup")

	var form transport.SignUpForm
	if err := c.Bind(&form); err != nil {
		l.Warn("signup_failed", "status", 400, "reason", "invalid form", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	sess, err := h.Svc.SignUp(ctx, form)
	if err != nil {
		if fields, ok := fieldErrors(err); ok {
			l.Warn("signup_failed", "status", 422, "reason", "invalid form", "fields", len(fields))
			form.Password1, form.Password2 = "", ""
			return h.render(c, http.StatusUnprocessableEntity, "signup", signUpPage{Form: form, Errors: fields})
		}
		l.Error("signup_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create the account")
	}

	auth.SetSessionCookies(c, sess, h.CookieSecure)
	h.flash(c, "Your account has been created.")
	l.Info("signup_success", "user_id", sess.User.ID)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *AuthHTTP) SignOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signout")

	if ck, err := c.Cookie(tokens.RefreshCookie); err == nil {
		if err := h.Svc.SignOut(ctx, ck.Value); err != nil {
			l.Error("signout_failed", "reason", "cannot revoke refresh token", "error", err)
		}
	}
	auth.ClearSessionCookies(c, h.CookieSecure)
	h.flash(c, "You have been signed out.")
	l.Info("signout_success")
	return c.Redirect(http.StatusSeeOther, "/")
}
