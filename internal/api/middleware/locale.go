package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/users-api/internal/i18n"
)

const (
	localeKey            = "locale"
	headerAcceptLanguage = "Accept-Language"
)

// Locale resolves the response locale from Accept-Language once per request.
func Locale(tr *i18n.Translator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(localeKey, tr.Locale(c.Request().Header.Get(headerAcceptLanguage)))
			return next(c)
		}
	}
}

// ResolveLocale returns the locale chosen by Locale, resolving it from the
// request headers when the middleware did not run.
func ResolveLocale(c echo.Context, tr *i18n.Translator) string {
	if loc, ok := c.Get(localeKey).(string); ok && loc != "" {
		return loc
	}
	return tr.Locale(c.Request().Header.Get(headerAcceptLanguage))
}
