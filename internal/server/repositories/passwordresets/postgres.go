package passwordresets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
	"github.com/dmitrijs2005/hrkeeper/internal/dbx"
	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, identityID string, hashedToken string, issuedAt time.Time) error {

	query :=
		`INSERT INTO password_reset_tokens (identity_id, hashed_token, issued_at)
		 VALUES ($1, $2, $3)
		 `

	_, err := r.db.ExecContext(ctx, query, identityID, hashedToken, issuedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, identityID string, hashedToken string) (*models.PasswordResetToken, error) {

	query :=
		`SELECT identity_id, hashed_token, issued_at
		 FROM password_reset_tokens
		 WHERE identity_id = $1 AND hashed_token = $2
		 `

	var t models.PasswordResetToken
	err := r.db.QueryRowContext(ctx, query, identityID, hashedToken).Scan(&t.IdentityID, &t.HashedToken, &t.IssuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &t, nil
}

func (r *PostgresRepository) DeleteByIdentity(ctx context.Context, identityID string) error {

	query := `DELETE FROM password_reset_tokens WHERE identity_id = $1`

	_, err := r.db.ExecContext(ctx, query, identityID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
