package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sieapi/gateway/internal/core/domain"
	"github.com/sieapi/gateway/internal/core/ports"
)

// UserService implements admin account management.
type UserService struct {
	users     ports.UserRepository
	instances ports.InstanceRepository
	log       zerolog.Logger
	now       func() time.Time
}

func NewUserService(users ports.UserRepository, instances ports.InstanceRepository, log zerolog.Logger) *UserService {
	return &UserService{users: users, instances: instances, log: log, now: time.Now}
}

func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

// CreateUser creates an account that is already confirmed and active.
func (s *UserService) CreateUser(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if err := requireFields("email", email, "password", in.Password, "name", name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := emailFree(ctx, s.users, email, ""); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		IsAdmin:      in.IsAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	user.ConfirmEmail()

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Bool("is_admin", created.IsAdmin).Msg("user created by admin")
	return created, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil && normalizeEmail(*in.Email) != "" {
		email := normalizeEmail(*in.Email)
		if email != user.Email {
			if err := validateEmail(email); err != nil {
				return nil, err
			}
			if err := emailFree(ctx, s.users, email, user.ID); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if in.IsAdmin != nil {
		user.IsAdmin = *in.IsAdmin
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes the account and every instance it owns. Admins cannot
// delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, caller *domain.User, id string) error {
	target, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if caller != nil && target.ID == caller.ID {
		return domain.ErrSelfDeletion
	}

	if err := s.instances.DeleteByOwner(ctx, target.ID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, target.ID); err != nil {
		return err
	}

	s.log.Info().Str("user_id", target.ID).Msg("user deleted")
	return nil
}

// EnsureAdmin creates the bootstrap admin account unless password is empty or
// the email is already registered.
func (s *UserService) EnsureAdmin(ctx context.Context, email, name, password string) (bool, error) {
	if password == "" {
		return false, nil
	}
	_, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	if _, err := s.CreateUser(ctx, ports.CreateUserInput{
		Email:    email,
		Password: password,
		Name:     name,
		IsAdmin:  true,
	}); err != nil {
		return false, err
	}
	return true, nil
}
