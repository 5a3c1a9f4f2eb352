package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole lets a request reach /users only when the role claim stored by
// Auth is one of roles. Roles compare case-insensitively; blank entries are
// ignored.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	permitted := make(map[string]bool, len(roles))
	for _, r := range roles {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			permitted[r] = true
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(RoleKey).(string)
			switch {
			case role == "":
				return echo.NewHTTPError(http.StatusForbidden, "token carries no role")
			case !permitted[strings.ToLower(role)]:
				return echo.NewHTTPError(http.StatusForbidden, "role may not manage users")
			}
			return next(c)
		}
	}
}
