package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/users-api/internal/api/metrics"
	"github.com/99minutos/users-api/internal/api/middleware"
	"github.com/99minutos/users-api/internal/core/domain"
	"github.com/99minutos/users-api/internal/i18n"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// validationErrorResponse adds per-field messages to the envelope.
type validationErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Renders validation failures as 422 with localized per-field messages.
//   - Maps known domain errors to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger, tr *i18n.Translator) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			locale := middleware.ResolveLocale(c, tr)
			if len(verr.Violations) > 0 {
				metrics.ValidationFailuresTotal.WithLabelValues(c.Path(), verr.Violations[0].Field).Inc()
			}
			_ = c.JSON(http.StatusUnprocessableEntity, validationErrorResponse{
				Error:  tr.T(locale, i18n.KeyValidationFailed),
				Fields: tr.Fields(locale, verr),
			})
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, auth, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	if errors.Is(err, domain.ErrUserNotFound) {
		return http.StatusNotFound, "user not found"
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
