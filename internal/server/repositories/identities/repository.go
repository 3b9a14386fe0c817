// Package identities declares the repository contract for identity records
// and their stored credential.
package identities

import (
	"context"

	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
)

// Repository defines persistence operations for identities.
type Repository interface {
	// Create inserts identity, whose ID is assigned by the caller, and fills in
	// its timestamps.
	// A taken username or email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, identity *models.Identity) (*models.Identity, error)

	GetByID(ctx context.Context, id string) (*models.Identity, error)
	GetByUserName(ctx context.Context, userName string) (*models.Identity, error)

	// GetByIDForUpdate reads the identity and locks its row until the
	// surrounding transaction ends. Only meaningful on a transactional handle.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Identity, error)

	UpdateStatus(ctx context.Context, id string, status models.Status) error
	UpdateCredential(ctx context.Context, id string, passwordHash, salt string) error
}
