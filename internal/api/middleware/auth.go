package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sieapi/gateway/internal/core/domain"
)

// ContextUserKey is the echo context key holding the authenticated *domain.User.
const ContextUserKey = "user"

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// Auth requires "Authorization: Bearer <token>" and stores the resolved user
// in the context. Every failure is returned to the central error handler.
func Auth(authenticator Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return domain.ErrUnauthenticated
			}

			user, err := authenticator.Authenticate(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(ContextUserKey, user)
			return next(c)
		}
	}
}

// UserFrom returns the user stored by Auth, or nil when the route is not guarded.
func UserFrom(c echo.Context) *domain.User {
	user, _ := c.Get(ContextUserKey).(*domain.User)
	return user
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
