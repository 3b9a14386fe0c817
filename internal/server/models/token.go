package models

import "time"

// VerificationToken is the hashed email-verification code of a Pending
// identity. There is at most one per identity.
type VerificationToken struct {
	IdentityID string
	HashedCode string
	CreatedAt  time.Time
}

// PasswordResetToken is the hashed reset token of an identity, valid for a
// fixed TTL after IssuedAt. There is at most one per identity.
type PasswordResetToken struct {
	IdentityID  string
	HashedToken string
	IssuedAt    time.Time
}

// Expired reports whether the token is outside its validity window at now.
// A token is valid while now - IssuedAt < ttl.
func (t *PasswordResetToken) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(t.IssuedAt) >= ttl
}
