// Package verifications declares the repository contract for pending
// email-verification codes.
package verifications

import (
	"context"

	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
)

// Repository stores at most one hashed verification code per identity.
type Repository interface {
	// Save stores hashedCode for identityID, replacing any previous code.
	Save(ctx context.Context, identityID string, hashedCode string) error

	// Find returns the code stored for identityID or common.ErrorNotFound.
	Find(ctx context.Context, identityID string) (*models.VerificationToken, error)

	// Delete removes the code of identityID. Deleting a missing code is not an error.
	Delete(ctx context.Context, identityID string) error
}
