package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
	"github.com/dmitrijs2005/hrkeeper/internal/cryptox"
	"github.com/dmitrijs2005/hrkeeper/internal/dbx"
	"github.com/dmitrijs2005/hrkeeper/internal/logging"
	"github.com/dmitrijs2005/hrkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
	"github.com/dmitrijs2005/hrkeeper/internal/server/notify"
	"github.com/dmitrijs2005/hrkeeper/internal/server/repositories/repomanager"
)

const (
	// ResetTokenLength is the number of characters in a reset token.
	ResetTokenLength = 16
	// DefaultResetTTL is how long a reset token stays usable.
	DefaultResetTTL = time.Hour
)

// PasswordResetWorkflow issues, checks and consumes password reset tokens.
// Each identity has at most one live token; issuing a new one revokes the
// previous.
type PasswordResetWorkflow struct {
	txm      dbx.TxManager
	repos    repomanager.RepositoryManager
	hasher   cryptox.Hasher
	tokens   cryptox.TokenGenerator
	notifier notify.Notifier
	metrics  *metrics.Metrics
	ttl      time.Duration
	logger   logging.Logger
	now      func() time.Time
}

// NewPasswordResetWorkflow builds the workflow. A non-positive ttl means
// DefaultResetTTL.
func NewPasswordResetWorkflow(txm dbx.TxManager, repos repomanager.RepositoryManager, hasher cryptox.Hasher,
	tokens cryptox.TokenGenerator, notifier notify.Notifier, m *metrics.Metrics, ttl time.Duration, logger logging.Logger) *PasswordResetWorkflow {
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	return &PasswordResetWorkflow{
		txm:      txm,
		repos:    repos,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		metrics:  m,
		ttl:      ttl,
		logger:   logger.With("module", "passwordreset"),
		now:      time.Now,
	}
}

// IssueResetToken stores a fresh token for identity, dropping any earlier
// one, and returns its plaintext.
func (w *PasswordResetWorkflow) IssueResetToken(ctx context.Context, identity *models.Identity) (string, error) {
	if identity == nil {
		return "", fmt.Errorf("%w: identity is nil", common.ErrInvalidArgument)
	}

	token, err := w.tokens.GenerateToken(ResetTokenLength)
	if err != nil {
		return "", internalError(err)
	}
	hashed, err := w.hasher.Hash(token, identity.Salt)
	if err != nil {
		return "", internalError(err)
	}

	issuedAt := w.now()
	err = w.txm.WithTx(ctx, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := w.repos.PasswordResetTokens(tx)
		if err := repo.DeleteByIdentity(ctx, identity.ID); err != nil {
			return err
		}
		return repo.Create(ctx, identity.ID, hashed, issuedAt)
	})
	if err != nil {
		return "", internalError(err)
	}

	w.logger.Info(ctx, "password reset token issued", "identity_id", identity.ID)
	return token, nil
}

// VerifyResetToken checks token without consuming it.
func (w *PasswordResetWorkflow) VerifyResetToken(ctx context.Context, identity *models.Identity, token string) error {
	if identity == nil {
		return fmt.Errorf("%w: identity is nil", common.ErrInvalidArgument)
	}
	if err := checkResetTokenShape(token); err != nil {
		return err
	}
	return internalError(w.verifyWith(ctx, w.txm.Conn(), identity, token))
}

// ConsumeAndChangePassword verifies token and, in the same transaction,
// replaces the credential of identity and deletes the token. A confirmation
// is sent after commit; failing to send it does not undo the change.
func (w *PasswordResetWorkflow) ConsumeAndChangePassword(ctx context.Context, identity *models.Identity, token, newPassword string) error {
	if identity == nil {
		return fmt.Errorf("%w: identity is nil", common.ErrInvalidArgument)
	}
	if err := checkResetTokenShape(token); err != nil {
		return err
	}
	if newPassword == "" {
		return fmt.Errorf("%w: new password is empty", common.ErrInvalidArgument)
	}

	var changed *models.Identity
	err := w.txm.WithTx(ctx, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		ids := w.repos.Identities(tx)
		locked, err := ids.GetByIDForUpdate(ctx, identity.ID)
		if err != nil {
			return err
		}
		if err := w.verifyWith(ctx, tx, locked, token); err != nil {
			return err
		}

		hash, salt, err := hashNewSecret(w.hasher, newPassword)
		if err != nil {
			return err
		}
		if err := ids.UpdateCredential(ctx, locked.ID, hash, salt); err != nil {
			return err
		}
		if err := w.repos.PasswordResetTokens(tx).DeleteByIdentity(ctx, locked.ID); err != nil {
			return err
		}

		locked.PasswordHash, locked.Salt = hash, salt
		changed = locked
		return nil
	})
	if err != nil {
		return internalError(err)
	}

	identity.PasswordHash, identity.Salt = changed.PasswordHash, changed.Salt
	w.metrics.Event(metrics.EventPasswordReset)
	w.logger.Info(ctx, "password reset", "identity_id", identity.ID)

	if err := w.notifier.SendPasswordChanged(ctx, changed); err != nil {
		w.metrics.Event(metrics.EventNotifyFailed)
		w.logger.Warn(ctx, "password change notification failed", "identity_id", identity.ID, "error", err)
	}
	return nil
}

func (w *PasswordResetWorkflow) verifyWith(ctx context.Context, db dbx.DBTX, identity *models.Identity, token string) error {
	hashed, err := w.hasher.Hash(token, identity.Salt)
	if err != nil {
		return err
	}

	stored, err := w.repos.PasswordResetTokens(db).Find(ctx, identity.ID, hashed)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrWrongToken
		}
		return err
	}

	if stored.Expired(w.now(), w.ttl) {
		return common.ErrExpiredToken
	}
	return nil
}

func checkResetTokenShape(token string) error {
	if len(token) < ResetTokenLength {
		return fmt.Errorf("%w: reset token must be at least %d characters", common.ErrInvalidArgument, ResetTokenLength)
	}
	return nil
}
