package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sieapi/gateway/internal/metrics"
	"github.com/sieapi/gateway/internal/core/domain"
	"github.com/sieapi/gateway/internal/core/ports"
)

// AuthService implements registration, confirmation, login, password reset
// and bearer token authentication.
type AuthService struct {
	users    ports.UserRepository
	tokens   ports.TokenService
	mailer   ports.Mailer
	throttle ports.ResetThrottle
	baseURL  string
	log      zerolog.Logger
	now      func() time.Time
}

// NewAuthService wires the credential lifecycle. baseURL is the public root
// used to build confirmation and reset links. throttle may be nil.
func NewAuthService(
	users ports.UserRepository,
	tokens ports.TokenService,
	mailer ports.Mailer,
	throttle ports.ResetThrottle,
	baseURL string,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		mailer:   mailer,
		throttle: throttle,
		baseURL:  strings.TrimRight(baseURL, "/"),
		log:      log,
		now:      time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (res *ports.RegisterResult, err error) {
	defer func() { metrics.AuthOperationsTotal.WithLabelValues("register", resultLabel(err)).Inc() }()

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
	token, err := s.tokens.IssueOneTimeToken()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Email:             email,
		PasswordHash:      hash,
		Name:              name,
		ConfirmationToken: token,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Msg("user registered")

	res = &ports.RegisterResult{User: created}
	if err := s.mailer.SendConfirmation(ctx, created, s.link("/auth/confirm/", token)); err != nil {
		metrics.EmailsSentTotal.WithLabelValues("confirmation", "error").Inc()
		s.log.Warn().Err(err).Str("user_id", created.ID).Msg("confirmation email not sent")
		res.Warning = "account created, but the confirmation email could not be sent: " + err.Error()
		return res, nil
	}
	metrics.EmailsSentTotal.WithLabelValues("confirmation", "ok").Inc()
	return res, nil
}

func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (err error) {
	defer func() { metrics.AuthOperationsTotal.WithLabelValues("confirm", resultLabel(err)).Inc() }()

	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrTokenNotFound
	}

	user, err := s.users.ConfirmEmail(ctx, token, s.now().UTC())
	if err != nil {
		return err
	}

	s.log.Info().Str("user_id", user.ID).Msg("email confirmed")
	return nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (token string, user *domain.User, err error) {
	defer func() { metrics.AuthOperationsTotal.WithLabelValues("login", resultLabel(err)).Inc() }()

	email = normalizeEmail(email)
	if err := requireFields("email", email, "password", password); err != nil {
		return "", nil, err
	}

	user, err = s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if !passwordMatches(user.PasswordHash, password) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if !user.EmailConfirmed {
		return "", nil, domain.ErrEmailUnconfirmed
	}
	if !user.IsActive {
		return "", nil, domain.ErrAccountDisabled
	}

	token, err = s.tokens.IssueSessionToken(user.ID, user.IsAdmin)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// RequestPasswordReset never tells the caller whether email belongs to an
// account. Lookup, storage and delivery failures are only logged.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return domain.MissingField("email")
	}
	result := "ok"
	defer func() { metrics.AuthOperationsTotal.WithLabelValues("forgot_password", result).Inc() }()

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error().Err(err).Msg("reset request: user lookup failed")
			result = "error"
		}
		return nil
	}

	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, email)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("reset throttle unavailable, sending anyway")
		} else if !allowed {
			s.log.Debug().Str("user_id", user.ID).Msg("reset request throttled")
			result = "throttled"
			return nil
		}
	}

	token, err := s.tokens.IssueOneTimeToken()
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("reset request: token generation failed")
		result = "error"
		return nil
	}
	expiresAt := s.now().UTC().Add(domain.ResetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("reset request: storing token failed")
		result = "error"
		return nil
	}

	if err := s.mailer.SendPasswordReset(ctx, user, s.link("/auth/reset-password/", token)); err != nil {
		metrics.EmailsSentTotal.WithLabelValues("password_reset", "error").Inc()
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("password reset email not sent")
		result = "email_error"
		return nil
	}
	metrics.EmailsSentTotal.WithLabelValues("password_reset", "ok").Inc()
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	defer func() { metrics.AuthOperationsTotal.WithLabelValues("reset_password", resultLabel(err)).Inc() }()

	if err := requireFields("password", newPassword); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrTokenNotFound
	}

	user, err := s.users.FindByResetToken(ctx, token)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	if user.ResetTokenExpired(now) {
		return domain.ErrExpiredToken
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.ConsumeResetToken(ctx, user.ID, token, hash, now); err != nil {
		return err
	}

	s.log.Info().Str("user_id", user.ID).Msg("password reset")
	return nil
}

// UpdateProfile changes the caller's name and password. Admin-owned fields
// are never written here, so a concurrent disable by an admin sticks.
func (s *AuthService) UpdateProfile(ctx context.Context, user *domain.User, in ports.UpdateProfileInput) (*domain.User, error) {
	var name, hash string
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
	}
	if in.Password != nil && *in.Password != "" {
		h, err := hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	return s.users.UpdateProfile(ctx, user.ID, name, hash, s.now().UTC())
}

func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.VerifySessionToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", domain.ErrInvalidToken)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrAccountDisabled
	}
	return user, nil
}

func (s *AuthService) link(path, token string) string {
	return s.baseURL + path + url.PathEscape(token)
}

// emailFree fails with domain.ErrDuplicateEmail when email belongs to a user
// other than exceptID.
func emailFree(ctx context.Context, users ports.UserRepository, email, exceptID string) error {
	existing, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.ID != exceptID {
			return domain.ErrDuplicateEmail
		}
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return err
	}
}
