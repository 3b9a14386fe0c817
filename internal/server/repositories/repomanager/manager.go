package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/hrkeeper/internal/dbx"
	"github.com/dmitrijs2005/hrkeeper/internal/server/repositories/identities"
	"github.com/dmitrijs2005/hrkeeper/internal/server/repositories/passwordresets"
	"github.com/dmitrijs2005/hrkeeper/internal/server/repositories/verifications"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Identities(db dbx.DBTX) identities.Repository
	VerificationTokens(db dbx.DBTX) verifications.Repository
	PasswordResetTokens(db dbx.DBTX) passwordresets.Repository
}
