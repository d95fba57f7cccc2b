package ports

import (
	"context"

	"github.com/sieapi/gateway/internal/core/domain"
)

// RegisterInput carries a self-service registration.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// RegisterResult is the created account plus a non-fatal warning when the
// confirmation email could not be delivered.
type RegisterResult struct {
	User    *domain.User
	Warning string
}

// UpdateProfileInput is a partial profile update; nil fields are left untouched.
type UpdateProfileInput struct {
	Name     *string
	Password *string
}

// AuthService covers the self-service credential lifecycle and request
// authentication.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	ConfirmEmail(ctx context.Context, token string) error
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	UpdateProfile(ctx context.Context, user *domain.User, in UpdateProfileInput) (*domain.User, error)
	// Authenticate resolves a bearer token to an active user.
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// TokenService issues and verifies session and one-time tokens.
type TokenService interface {
	IssueSessionToken(userID string, isAdmin bool) (string, error)
	VerifySessionToken(token string) (*domain.SessionClaims, error)
	IssueOneTimeToken() (string, error)
}

// Mailer delivers transactional emails. link is the absolute URL the user
// has to open.
type Mailer interface {
	SendConfirmation(ctx context.Context, user *domain.User, link string) error
	SendPasswordReset(ctx context.Context, user *domain.User, link string) error
}

// ResetThrottle rate-limits password reset emails per address.
type ResetThrottle interface {
	// Allow reports whether a reset email may be sent to email now, and
	// records the attempt when it may.
	Allow(ctx context.Context, email string) (bool, error)
}
