// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/hrkeeper/internal/dbx"
	"github.com/dmitrijs2005/hrkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/hrkeeper/internal/server/repositories/identities"
	"github.com/dmitrijs2005/hrkeeper/internal/server/repositories/passwordresets"
	"github.com/dmitrijs2005/hrkeeper/internal/server/repositories/verifications"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DriverName is the database/sql driver registered by pgx.
const DriverName = "pgx"

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Identities returns an identities.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Identities(db dbx.DBTX) identities.Repository {
	return identities.NewPostgresRepository(db)
}

// VerificationTokens returns a verifications.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) VerificationTokens(db dbx.DBTX) verifications.Repository {
	return verifications.NewPostgresRepository(db)
}

// PasswordResetTokens returns a passwordresets.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) PasswordResetTokens(db dbx.DBTX) passwordresets.Repository {
	return passwordresets.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(DriverName); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(db *sql.DB) (RepositoryManager, error) {
	return &PostgresRepositoryManager{}, nil
}

// Open opens a pgx-backed *sql.DB for dsn and verifies connectivity.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
