package models

import "time"

// PasswordResetToken only ever carries the hash of the emailed token.
type PasswordResetToken struct {
	ID        int        `json:"id"`
	UserID    int        `json:"user_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Usable reports whether the token can still be consumed at now.
// A token is valid up to and including its expiry instant; the claim in
// repositories.claimResetToken (expires_at >= now) enforces the same bound.
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return t != nil && !t.Used && !now.After(t.ExpiresAt)
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}
