package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bakery_shop/internal/logging"
	"github.com/Skotchmaster/bakery_shop/internal/service"
)

type errorPage struct {
	Code    int
	Message string
}

// errorHandler renders HTML error pages, or JSON under /admin.
func errorHandler(s site) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := "Something went wrong on our side."
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = fmt.Sprint(he.Message)
			}
		}

		l := logging.FromContext(c.Request().Context())
		if code >= http.StatusInternalServerError {
			l.Error("request_failed", "status", code, "error", err)
		}

		switch {
		case c.Request().Method == http.MethodHead:
			err = c.NoContent(code)
		case strings.HasPrefix(c.Request().URL.Path, "/admin"):
			err = c.JSON(code, echo.Map{"error": msg})
		default:
			err = s.render(c, code, "error", errorPage{Code: code, Message: msg})
		}
		if err != nil {
			l.Error("error_page_failed", "error", err)
		}
	}
}

// fail maps a service error to an HTTP error and logs it once.
func fail(l *slog.Logger, event string, err error, what string) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event, "status", 404, "reason", what+" not found", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "Sorry, we couldn't find that "+what+".")
	case errors.Is(err, service.ErrConflict):
		l.Warn(event, "status", 409, "error", err)
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrValidation):
		l.Warn(event, "status", 422, "error", err)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		l.Error(event, "status", 500, "reason", "cannot load "+what, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Something went wrong on our side.")
	}
}

func fieldErrors(err error) (map[string]string, bool) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return verr.ByField(), true
	}
	return nil, false
}
