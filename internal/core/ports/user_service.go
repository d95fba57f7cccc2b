package ports

import (
	"context"

	"github.com/sieapi/gateway/internal/core/domain"
)

// CreateUserInput carries an admin-created account.
type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	IsAdmin  bool
}

// UpdateUserInput is a partial admin update; nil fields are left untouched.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
	IsAdmin  *bool
	IsActive *bool
}

// UserService defines the admin-only account management use cases.
type UserService interface {
	ListUsers(ctx context.Context) ([]*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, caller *domain.User, id string) error
}
