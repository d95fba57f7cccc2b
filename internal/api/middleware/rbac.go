package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/sieapi/gateway/internal/core/domain"
)

// AdminOnly lets the request through only for admins. It must run after Auth;
// the admin flag comes from the stored user record, not the token claim.
func AdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := UserFrom(c)
			if user == nil {
				return domain.ErrUnauthenticated
			}
			if !user.IsAdmin {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
