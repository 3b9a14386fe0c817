// Package dbx provides tiny DB abstractions shared by repositories:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx,
// and helpers to run functions inside a transaction.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxManager is the unit-of-work seam used by services: Conn for plain reads,
// WithTx for anything that must commit atomically.
type TxManager interface {
	Conn() DBTX
	WithTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) error
}

// ReadCommitted is the isolation the credential workflows require. Combined
// with row locks it keeps two concurrent redemptions from both succeeding.
var ReadCommitted = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// SQLTxManager implements TxManager on top of *sql.DB.
type SQLTxManager struct {
	db *sql.DB
}

// NewSQLTxManager wraps db.
func NewSQLTxManager(db *sql.DB) *SQLTxManager {
	return &SQLTxManager{db: db}
}

// Conn returns the pool itself.
func (m *SQLTxManager) Conn() DBTX {
	return m.db
}

// WithTx delegates to the package-level WithTx.
func (m *SQLTxManager) WithTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) error {
	return WithTx(ctx, m.db, opts, fn)
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// Typical use:
//
//	err := dbx.WithTx(ctx, db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
//	    // use tx instead of db
//	    _, err := tx.ExecContext(ctx, "UPDATE ...")
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
