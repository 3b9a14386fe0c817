package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/hrkeeper/internal/common"
	"github.com/dmitrijs2005/hrkeeper/internal/cryptox"
	"github.com/dmitrijs2005/hrkeeper/internal/dbx"
	"github.com/dmitrijs2005/hrkeeper/internal/logging"
	"github.com/dmitrijs2005/hrkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/hrkeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests run the workflows over the real Postgres repositories and
// check the statements issued inside each transaction.

var identityCols = []string{"id", "username", "email", "password_hash", "salt", "role", "status", "created_at", "updated_at"}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func sqlWorkflows(db *sql.DB) (*VerificationWorkflow, *PasswordResetWorkflow, *recordingNotifier) {
	txm := dbx.NewSQLTxManager(db)
	rm := &repomanager.PostgresRepositoryManager{}
	n := &recordingNotifier{}
	v := NewVerificationWorkflow(txm, rm, cryptox.HMACHasher{}, &sequenceGenerator{tokens: []string{"4f2a91"}}, logging.Nop{})
	r := NewPasswordResetWorkflow(txm, rm, cryptox.HMACHasher{}, &sequenceGenerator{tokens: []string{"0123456789abcdef"}}, n, metrics.New(), time.Hour, logging.Nop{})
	return v, r, n
}

func hashOf(t *testing.T, value, salt string) string {
	t.Helper()
	h, err := cryptox.HMACHasher{}.Hash(value, salt)
	require.NoError(t, err)
	return h
}

func TestSQL_RedeemCommits(t *testing.T) {
	db, mock := newSQLMockDB(t)
	v, _, _ := sqlWorkflows(db)
	alice := storedIdentity(t, "password1")
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM\s+identities\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE`).
		WithArgs(alice.ID).
		WillReturnRows(sqlmock.NewRows(identityCols).
			AddRow(alice.ID, "alice", "alice@example.com", alice.PasswordHash, alice.Salt, "user", "Pending", now, now))
	mock.ExpectQuery(`FROM\s+verification_tokens\s+WHERE\s+identity_id\s*=\s*\$1`).
		WithArgs(alice.ID).
		WillReturnRows(sqlmock.NewRows([]string{"identity_id", "hashed_code", "created_at"}).
			AddRow(alice.ID, hashOf(t, "4F2A91", alice.Salt), now))
	mock.ExpectExec(`UPDATE\s+identities\s+SET\s+status`).
		WithArgs("Active", alice.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE\s+FROM\s+verification_tokens`).
		WithArgs(alice.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, v.Redeem(context.Background(), alice, "4F2A91"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQL_RedeemRollsBackOnUpdateError(t *testing.T) {
	db, mock := newSQLMockDB(t)
	v, _, _ := sqlWorkflows(db)
	alice := storedIdentity(t, "password1")
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR\s+UPDATE`).
		WillReturnRows(sqlmock.NewRows(identityCols).
			AddRow(alice.ID, "alice", "alice@example.com", alice.PasswordHash, alice.Salt, "user", "Pending", now, now))
	mock.ExpectQuery(`FROM\s+verification_tokens`).
		WillReturnRows(sqlmock.NewRows([]string{"identity_id", "hashed_code", "created_at"}).
			AddRow(alice.ID, hashOf(t, "4F2A91", alice.Salt), now))
	mock.ExpectExec(`UPDATE\s+identities\s+SET\s+status`).
		WillReturnError(errors.New("statement timeout"))
	mock.ExpectRollback()

	err := v.Redeem(context.Background(), alice, "4F2A91")
	assert.ErrorIs(t, err, common.ErrorInternal)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQL_RedeemAlreadyActiveRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	v, _, _ := sqlWorkflows(db)
	alice := storedIdentity(t, "password1")
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR\s+UPDATE`).
		WillReturnRows(sqlmock.NewRows(identityCols).
			AddRow(alice.ID, "alice", "alice@example.com", alice.PasswordHash, alice.Salt, "user", "Active", now, now))
	mock.ExpectRollback()

	assert.ErrorIs(t, v.Redeem(context.Background(), alice, "4F2A91"), common.ErrAlreadyVerified)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQL_BeginFailureIsInternal(t *testing.T) {
	db, mock := newSQLMockDB(t)
	v, _, _ := sqlWorkflows(db)

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	assert.ErrorIs(t, v.Redeem(context.Background(), storedIdentity(t, "pw"), "4F2A91"), common.ErrorInternal)
}

func TestSQL_IssueResetTokenDeletesThenInserts(t *testing.T) {
	db, mock := newSQLMockDB(t)
	_, r, _ := sqlWorkflows(db)
	alice := storedIdentity(t, "password1")
	issued := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return issued }

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE\s+FROM\s+password_reset_tokens`).
		WithArgs(alice.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+password_reset_tokens`).
		WithArgs(alice.ID, hashOf(t, "0123456789abcdef", alice.Salt), issued).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	token, err := r.IssueResetToken(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef", token)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQL_ConsumeAndChangePassword(t *testing.T) {
	db, mock := newSQLMockDB(t)
	_, r, n := sqlWorkflows(db)
	alice := storedIdentity(t, "password1")
	now := time.Now()
	r.now = func() time.Time { return now }

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR\s+UPDATE`).
		WithArgs(alice.ID).
		WillReturnRows(sqlmock.NewRows(identityCols).
			AddRow(alice.ID, "alice", "alice@example.com", alice.PasswordHash, alice.Salt, "user", "Active", now, now))
	mock.ExpectQuery(`FROM\s+password_reset_tokens\s+WHERE\s+identity_id\s*=\s*\$1\s+AND\s+hashed_token\s*=\s*\$2`).
		WithArgs(alice.ID, hashOf(t, "0123456789abcdef", alice.Salt)).
		WillReturnRows(sqlmock.NewRows([]string{"identity_id", "hashed_token", "issued_at"}).
			AddRow(alice.ID, "h", now.Add(-10*time.Minute)))
	mock.ExpectExec(`UPDATE\s+identities\s+SET\s+password_hash`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), alice.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE\s+FROM\s+password_reset_tokens`).
		WithArgs(alice.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, r.ConsumeAndChangePassword(context.Background(), alice, "0123456789abcdef", "brand new pass"))
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Len(t, n.sent, 1)
}

func TestSQL_ConsumeExpiredRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	_, r, n := sqlWorkflows(db)
	alice := storedIdentity(t, "password1")
	now := time.Now()
	r.now = func() time.Time { return now }

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR\s+UPDATE`).
		WillReturnRows(sqlmock.NewRows(identityCols).
			AddRow(alice.ID, "alice", "alice@example.com", alice.PasswordHash, alice.Salt, "user", "Active", now, now))
	mock.ExpectQuery(`FROM\s+password_reset_tokens`).
		WillReturnRows(sqlmock.NewRows([]string{"identity_id", "hashed_token", "issued_at"}).
			AddRow(alice.ID, "h", now.Add(-time.Hour)))
	mock.ExpectRollback()

	err := r.ConsumeAndChangePassword(context.Background(), alice, "0123456789abcdef", "brand new pass")
	assert.ErrorIs(t, err, common.ErrExpiredToken)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, n.sent)
}

func TestSQL_IssueLocksAndRollsBackWhenActive(t *testing.T) {
	db, mock := newSQLMockDB(t)
	v, _, _ := sqlWorkflows(db)
	alice := storedIdentity(t, "password1")
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM\s+identities\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE`).
		WithArgs(alice.ID).
		WillReturnRows(sqlmock.NewRows(identityCols).
			AddRow(alice.ID, "alice", "alice@example.com", alice.PasswordHash, alice.Salt, "user", "Active", now, now))
	mock.ExpectRollback()

	_, err := v.Issue(context.Background(), alice)
	assert.ErrorIs(t, err, common.ErrAlreadyVerified)
	require.NoError(t, mock.ExpectationsWereMet())
}
