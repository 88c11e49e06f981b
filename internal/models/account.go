package models

import (
	"time"
)

// Account is the persistent identity record for a registered user.
type Account struct {
	ID                     string
	Username               string
	Email                  string
	PasswordHash           string
	IsVerified             bool
	IsAdmin                bool
	EmailVerificationToken *string    // Set while email verification is pending
	ResetPasswordTokenHash *string    // bcrypt hash of an outstanding reset token
	ResetPasswordExpiresAt *time.Time // Validity window of the outstanding reset token
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// HasPendingReset reports whether a reset token is outstanding and still valid.
func (a *Account) HasPendingReset(now time.Time) bool {
	return a.ResetPasswordTokenHash != nil &&
		a.ResetPasswordExpiresAt != nil &&
		a.ResetPasswordExpiresAt.After(now)
}

// PublicAccount is the projection of an Account safe to return to callers.
// Credential material and token state never leave the store through it.
type PublicAccount struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"isVerified"`
	IsAdmin    bool      `json:"isAdmin"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Public returns the caller-safe view of the account.
func (a *Account) Public() *PublicAccount {
	return &PublicAccount{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		IsVerified: a.IsVerified,
		IsAdmin:    a.IsAdmin,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}
