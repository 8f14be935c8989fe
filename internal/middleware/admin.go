package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/streamverse/catalog-api/internal/utils"
)

// RequireAdmin gates admin-only operations. It must run strictly after
// Authenticate: authorization never executes before an identity is resolved,
// so a missing context user is rejected the same way as a non-admin one.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, ok := CurrentUser(c)
		if !ok || !u.Admin {
			return utils.Error(c, http.StatusForbidden, "Admin privileges required")
		}
		return next(c)
	}
}
