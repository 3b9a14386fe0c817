// Package common defines shared constants and sentinel errors used across
// client and server layers of hrkeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors: malformed or missing input.
	ErrInvalidArgument = errors.New("invalid argument")

	// Login errors.
	ErrIncorrectCredential = errors.New("incorrect credential")
	ErrIdentityNotActive   = errors.New("identity is not active")

	// Session token errors (malformed, expired or foreign signature).
	ErrInvalidToken = errors.New("invalid token")

	// One-time token errors. Each kind is distinct so the API layer can
	// tell the user exactly what went wrong.
	ErrInvalidCode     = errors.New("invalid verification code")
	ErrWrongToken      = errors.New("wrong reset token")
	ErrExpiredToken    = errors.New("reset token expired")
	ErrAlreadyVerified = errors.New("identity already verified")
)

// IsDomainError reports whether err carries one of the kinds above that a
// caller is expected to branch on. Everything else is treated as internal.
func IsDomainError(err error) bool {
	for _, kind := range []error{
		ErrorNotFound, ErrorAlreadyExists, ErrorInternal, ErrorUnauthorized,
		ErrInvalidArgument, ErrIncorrectCredential, ErrIdentityNotActive,
		ErrInvalidToken, ErrInvalidCode, ErrWrongToken, ErrExpiredToken,
		ErrAlreadyVerified,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
