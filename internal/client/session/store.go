// Package session keeps the hrctl login between invocations in a local
// SQLite file.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/hrkeeper/internal/client/session/migrations"
	"github.com/dmitrijs2005/hrkeeper/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

const (
	keyUserName     = "user_name"
	keySessionToken = "session_token"
)

type Store struct {
	db   *sql.DB
	repo Repository
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the store at path. The file is readable
// only by its owner since it holds a bearer token.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := os.Chmod(path, 0o600); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, repo: NewSQLiteRepository(db)}, nil
}

// Save replaces the stored login atomically.
func (s *Store) Save(ctx context.Context, userName, token string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyUserName, []byte(userName)); err != nil {
			return err
		}
		return repo.Set(ctx, keySessionToken, []byte(token))
	})
}

// Load returns the stored login, or empty strings when there is none.
func (s *Store) Load(ctx context.Context) (userName, token string, err error) {
	u, err := s.repo.Get(ctx, keyUserName)
	if err != nil {
		return "", "", err
	}
	t, err := s.repo.Get(ctx, keySessionToken)
	if err != nil {
		return "", "", err
	}
	return string(u), string(t), nil
}

func (s *Store) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, keySessionToken); err != nil {
			return err
		}
		return repo.Delete(ctx, keyUserName)
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
