// Package passwordresets declares the repository contract for password
// reset tokens. Each identity has at most one live token.
package passwordresets

import (
	"context"
	"time"

	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
)

type Repository interface {
	// Create stores hashedToken for identityID issued at issuedAt.
	// Callers remove the previous token first with DeleteByIdentity.
	Create(ctx context.Context, identityID string, hashedToken string, issuedAt time.Time) error

	// Find returns the token stored for identityID matching hashedToken,
	// or common.ErrorNotFound.
	Find(ctx context.Context, identityID string, hashedToken string) (*models.PasswordResetToken, error)

	// DeleteByIdentity removes any token of identityID. Deleting nothing is not an error.
	DeleteByIdentity(ctx context.Context, identityID string) error
}
