package ports

import (
	"context"
	"time"

	"github.com/sieapi/gateway/internal/core/domain"
)

// UserRepository defines persistence for user accounts. Implementations must
// enforce email uniqueness and report violations as domain.ErrDuplicateEmail.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByResetToken(ctx context.Context, token string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	// Update replaces every mutable field of the stored user with user's values.
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	// UpdateProfile sets the self-service fields only. Empty name or
	// passwordHash leave the stored value untouched. Returns the stored user.
	UpdateProfile(ctx context.Context, userID, name, passwordHash string, now time.Time) (*domain.User, error)

	// ConfirmEmail atomically redeems a confirmation token: the matching user is
	// confirmed, activated and the token cleared. Unknown or already redeemed
	// tokens yield domain.ErrTokenNotFound.
	ConfirmEmail(ctx context.Context, token string, now time.Time) (*domain.User, error)
	// SetResetToken stores a reset token and its expiry on the user.
	SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	// ConsumeResetToken replaces the password hash and clears the reset token,
	// only if the user still carries token. Otherwise domain.ErrTokenNotFound.
	ConsumeResetToken(ctx context.Context, userID, token, passwordHash string, now time.Time) error
}
