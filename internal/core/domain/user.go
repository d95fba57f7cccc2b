package domain

import "time"

// ResetTokenTTL is how long a password reset token stays redeemable.
const ResetTokenTTL = 24 * time.Hour

// User models an account that can own instances.
type User struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	Name                string     `json:"name"`
	IsAdmin             bool       `json:"is_admin"`
	IsActive            bool       `json:"is_active"`
	EmailConfirmed      bool       `json:"email_confirmed"`
	ConfirmationToken   string     `json:"-"`
	ResetPasswordToken  string     `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// CanLogin reports whether the account is both confirmed and active.
func (u *User) CanLogin() bool {
	return u.IsActive && u.EmailConfirmed
}

// ConfirmEmail marks the address as verified, activates the account and
// consumes the confirmation token.
func (u *User) ConfirmEmail() {
	u.EmailConfirmed = true
	u.IsActive = true
	u.ConfirmationToken = ""
}

// ResetTokenExpired reports whether the reset token expired strictly before now.
// A token without a recorded expiry is treated as expired.
func (u *User) ResetTokenExpired(now time.Time) bool {
	if u.ResetTokenExpiresAt == nil {
		return true
	}
	return u.ResetTokenExpiresAt.Before(now)
}

// SessionClaims is the identity carried by a verified session token.
type SessionClaims struct {
	UserID    string
	IsAdmin   bool
	ExpiresAt time.Time
}
