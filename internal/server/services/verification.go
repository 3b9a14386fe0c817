package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
	"github.com/dmitrijs2005/hrkeeper/internal/cryptox"
	"github.com/dmitrijs2005/hrkeeper/internal/dbx"
	"github.com/dmitrijs2005/hrkeeper/internal/logging"
	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
	"github.com/dmitrijs2005/hrkeeper/internal/server/repositories/repomanager"
)

// VerificationCodeLength is the number of characters in an email code.
const VerificationCodeLength = 6

// VerificationWorkflow issues and redeems email-verification codes. Only the
// salted hash of a code is stored; the plaintext goes to the caller once.
type VerificationWorkflow struct {
	txm    dbx.TxManager
	repos  repomanager.RepositoryManager
	hasher cryptox.Hasher
	codes  cryptox.TokenGenerator
	logger logging.Logger
}

// NewVerificationWorkflow builds the workflow. Codes are upper-cased so
// that people can read and type them back easily.
func NewVerificationWorkflow(txm dbx.TxManager, repos repomanager.RepositoryManager, hasher cryptox.Hasher, gen cryptox.TokenGenerator, logger logging.Logger) *VerificationWorkflow {
	return &VerificationWorkflow{
		txm:    txm,
		repos:  repos,
		hasher: hasher,
		codes:  cryptox.UpperTokenGenerator{Next: gen},
		logger: logger.With("module", "verification"),
	}
}

// Issue replaces any previous code of a Pending identity with a new one and
// returns its plaintext. The status is read from the locked row, not from
// identity, so a code is never stored for an identity activated meanwhile.
func (w *VerificationWorkflow) Issue(ctx context.Context, identity *models.Identity) (string, error) {
	if identity == nil {
		return "", fmt.Errorf("%w: identity is nil", common.ErrInvalidArgument)
	}

	var code string
	err := w.txm.WithTx(ctx, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		locked, err := w.repos.Identities(tx).GetByIDForUpdate(ctx, identity.ID)
		if err != nil {
			return err
		}
		code, err = w.issueWith(ctx, tx, locked)
		return err
	})
	if err != nil {
		return "", internalError(err)
	}

	w.logger.Info(ctx, "verification code issued", "identity_id", identity.ID)
	return code, nil
}

// issueWith stores a new code for identity, which must be the current row
// as seen by tx. Registration calls it with the row it just created.
func (w *VerificationWorkflow) issueWith(ctx context.Context, tx dbx.DBTX, identity *models.Identity) (string, error) {
	if identity == nil {
		return "", fmt.Errorf("%w: identity is nil", common.ErrInvalidArgument)
	}
	if err := requirePending(identity.Status); err != nil {
		return "", err
	}

	code, err := w.codes.GenerateToken(VerificationCodeLength)
	if err != nil {
		return "", err
	}
	hashed, err := w.hasher.Hash(code, identity.Salt)
	if err != nil {
		return "", err
	}

	repo := w.repos.VerificationTokens(tx)
	if err := repo.Delete(ctx, identity.ID); err != nil {
		return "", err
	}
	if err := repo.Save(ctx, identity.ID, hashed); err != nil {
		return "", err
	}
	return code, nil
}

// requirePending maps a non-Pending status to the error a caller reports.
func requirePending(status models.Status) error {
	switch status {
	case models.StatusPending:
		return nil
	case models.StatusDisabled:
		return fmt.Errorf("%w: status is %s", common.ErrIdentityNotActive, status)
	default:
		return common.ErrAlreadyVerified
	}
}

// Redeem activates identity if code matches its stored verification code.
// The identity row is locked for the duration of the check, so of two
// concurrent redemptions exactly one succeeds and the other sees
// common.ErrAlreadyVerified.
func (w *VerificationWorkflow) Redeem(ctx context.Context, identity *models.Identity, code string) error {
	if identity == nil {
		return fmt.Errorf("%w: identity is nil", common.ErrInvalidArgument)
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < VerificationCodeLength {
		return common.ErrInvalidCode
	}

	err := w.txm.WithTx(ctx, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		locked, err := w.repos.Identities(tx).GetByIDForUpdate(ctx, identity.ID)
		if err != nil {
			return err
		}
		if locked.Status != models.StatusPending {
			return common.ErrAlreadyVerified
		}

		codes := w.repos.VerificationTokens(tx)
		stored, err := codes.Find(ctx, locked.ID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidCode
			}
			return err
		}

		hashed, err := w.hasher.Hash(code, locked.Salt)
		if err != nil {
			return err
		}
		if !cryptox.Equal(hashed, stored.HashedCode) {
			return common.ErrInvalidCode
		}

		if err := w.repos.Identities(tx).UpdateStatus(ctx, locked.ID, models.StatusActive); err != nil {
			return err
		}
		return codes.Delete(ctx, locked.ID)
	})
	if err != nil {
		return internalError(err)
	}

	identity.Status = models.StatusActive
	w.logger.Info(ctx, "identity verified", "identity_id", identity.ID)
	return nil
}
