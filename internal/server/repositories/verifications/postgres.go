package verifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) Save(ctx context.Context, identityID string, hashedCode string) error {

	query :=
		`INSERT INTO verification_tokens (identity_id, hashed_code, created_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (identity_id) DO UPDATE
		 SET hashed_code = EXCLUDED.hashed_code, created_at = EXCLUDED.created_at
		 `

	_, err := r.db.ExecContext(ctx, query, identityID, hashedCode)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, identityID string) (*models.VerificationToken, error) {

	query :=
		`SELECT identity_id, hashed_code, created_at
		 FROM verification_tokens
		 WHERE identity_id = $1
		 `

	var t models.VerificationToken
	err := r.db.QueryRowContext(ctx, query, identityID).Scan(&t.IdentityID, &t.HashedCode, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &t, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, identityID string) error {

	query := `DELETE FROM verification_tokens WHERE identity_id = $1`

	_, err := r.db.ExecContext(ctx, query, identityID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
