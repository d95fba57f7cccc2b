package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sieapi/gateway/internal/api/middleware"
	"github.com/sieapi/gateway/internal/core/domain"
)

// currentUser returns the caller resolved by the Auth middleware. A missing
// user means the route was registered without the guard; fail closed.
func currentUser(c echo.Context) (*domain.User, error) {
	user := middleware.UserFrom(c)
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}
	return user, nil
}

// bindAndValidate decodes the request body into req and runs its validate tags.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

// messageResponse is the body of operations that return no resource.
type messageResponse struct {
	Message string `json:"message"`
}
