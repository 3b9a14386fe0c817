// Package services contains server-side business logic: login credential
// checks, the email-verification and password-reset workflows, and the
// IdentityService that composes them for the transport layer.
package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
	"github.com/dmitrijs2005/hrkeeper/internal/cryptox"
	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
)

// SaltLength is the length of every credential salt, in hex characters.
const SaltLength = 16

// CredentialVerifier checks a supplied password against a stored credential.
type CredentialVerifier struct {
	hasher cryptox.Hasher
}

// NewCredentialVerifier returns a verifier that hashes with hasher.
func NewCredentialVerifier(hasher cryptox.Hasher) *CredentialVerifier {
	return &CredentialVerifier{hasher: hasher}
}

// ValidateLogin recomputes the hash of supplied with the identity's salt and
// compares it in constant time. It does not look at the identity status.
func (v *CredentialVerifier) ValidateLogin(identity *models.Identity, supplied string) error {
	if identity == nil {
		return fmt.Errorf("%w: identity is nil", common.ErrInvalidArgument)
	}
	if supplied == "" {
		return common.ErrIncorrectCredential
	}

	hashed, err := v.hasher.Hash(supplied, identity.Salt)
	if err != nil {
		if errors.Is(err, common.ErrInvalidArgument) {
			return common.ErrIncorrectCredential
		}
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if !cryptox.Equal(hashed, identity.PasswordHash) {
		return common.ErrIncorrectCredential
	}
	return nil
}

// hashNewSecret salts and hashes a fresh password.
func hashNewSecret(hasher cryptox.Hasher, password string) (hash, salt string, err error) {
	salt, err = hasher.GenerateSalt(SaltLength)
	if err != nil {
		return "", "", err
	}
	hash, err = hasher.Hash(password, salt)
	if err != nil {
		return "", "", err
	}
	return hash, salt, nil
}

// internalError passes domain errors through and folds everything else
// into common.ErrorInternal, keeping the cause in the message.
func internalError(err error) error {
	if err == nil || common.IsDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrorInternal, err)
}
