package identities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
	"github.com/dmitrijs2005/hrkeeper/internal/dbx"
	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const selectColumns = `SELECT id, username, email, password_hash, salt, role, status, created_at, updated_at
		 FROM identities`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {

	query :=
		`INSERT INTO identities (id, username, email, password_hash, salt, role, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		identity.ID, identity.UserName, identity.Email, identity.PasswordHash, identity.Salt,
		string(identity.Role), string(identity.Status),
	).Scan(&identity.CreatedAt, &identity.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return identity, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	return r.getOne(ctx, selectColumns+`
		 WHERE id = $1
		 `, id)
}

func (r *PostgresRepository) GetByUserName(ctx context.Context, userName string) (*models.Identity, error) {
	return r.getOne(ctx, selectColumns+`
		 WHERE username = $1
		 `, userName)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Identity, error) {
	return r.getOne(ctx, selectColumns+`
		 WHERE id = $1
		 FOR UPDATE
		 `, id)
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	query :=
		`UPDATE identities SET status = $1, updated_at = now()
		 WHERE id = $2
		 `
	return r.execOne(ctx, query, string(status), id)
}

func (r *PostgresRepository) UpdateCredential(ctx context.Context, id string, passwordHash, salt string) error {
	query :=
		`UPDATE identities SET password_hash = $1, salt = $2, updated_at = now()
		 WHERE id = $3
		 `
	return r.execOne(ctx, query, passwordHash, salt, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*models.Identity, error) {
	var (
		identity     models.Identity
		role, status string
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&identity.ID,
		&identity.UserName,
		&identity.Email,
		&identity.PasswordHash,
		&identity.Salt,
		&role,
		&status,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	identity.Role = models.Role(role)
	identity.Status = models.Status(status)
	return &identity, nil
}

// execOne runs an update that must touch exactly one identity.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
