package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
	"github.com/dmitrijs2005/hrkeeper/internal/cryptox"
	"github.com/dmitrijs2005/hrkeeper/internal/dbx"
	"github.com/dmitrijs2005/hrkeeper/internal/logging"
	"github.com/dmitrijs2005/hrkeeper/internal/server/auth"
	"github.com/dmitrijs2005/hrkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
	"github.com/dmitrijs2005/hrkeeper/internal/server/notify"
	"github.com/dmitrijs2005/hrkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// MinPasswordLength is the shortest password accepted on registration or
// change.
const MinPasswordLength = 8

// RegisterRequest carries the attributes of a new identity.
type RegisterRequest struct {
	UserName string
	Email    string
	Password string
	Role     models.Role
}

// absentIdentity stands in for unknown usernames at login so that the
// password is hashed on every attempt. Its empty hash never matches.
var absentIdentity = &models.Identity{Salt: strings.Repeat("0", SaltLength)}

// IdentityService is the account-facing API: it looks identities up by
// name and drives the credential workflows for them.
type IdentityService struct {
	txm          dbx.TxManager
	repos        repomanager.RepositoryManager
	hasher       cryptox.Hasher
	credentials  *CredentialVerifier
	verification *VerificationWorkflow
	reset        *PasswordResetWorkflow
	sessions     *auth.SessionIssuer
	notifier     notify.Notifier
	metrics      *metrics.Metrics
	logger       logging.Logger
}

func NewIdentityService(txm dbx.TxManager, repos repomanager.RepositoryManager, hasher cryptox.Hasher,
	verification *VerificationWorkflow, reset *PasswordResetWorkflow, sessions *auth.SessionIssuer,
	notifier notify.Notifier, m *metrics.Metrics, logger logging.Logger) *IdentityService {
	return &IdentityService{
		txm:          txm,
		repos:        repos,
		hasher:       hasher,
		credentials:  NewCredentialVerifier(hasher),
		verification: verification,
		reset:        reset,
		sessions:     sessions,
		notifier:     notifier,
		metrics:      m,
		logger:       logger.With("module", "identity"),
	}
}

// Register creates a Pending identity together with its first verification
// code and sends the code out.
func (s *IdentityService) Register(ctx context.Context, req RegisterRequest) (*models.Identity, error) {
	req.UserName = strings.TrimSpace(req.UserName)
	req.Email = strings.TrimSpace(req.Email)
	if req.Role == "" {
		req.Role = models.RoleUser
	}

	if req.UserName == "" {
		return nil, fmt.Errorf("%w: username is required", common.ErrInvalidArgument)
	}
	if !strings.Contains(req.Email, "@") {
		return nil, fmt.Errorf("%w: email is invalid", common.ErrInvalidArgument)
	}
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrInvalidArgument, req.Role)
	}
	if err := checkPasswordPolicy(req.Password); err != nil {
		return nil, err
	}

	hash, salt, err := hashNewSecret(s.hasher, req.Password)
	if err != nil {
		return nil, internalError(err)
	}

	identity := &models.Identity{
		ID:           uuid.NewString(),
		UserName:     req.UserName,
		Email:        req.Email,
		PasswordHash: hash,
		Salt:         salt,
		Role:         req.Role,
		Status:       models.StatusPending,
	}

	var code string
	err = s.txm.WithTx(ctx, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repos.Identities(tx).Create(ctx, identity)
		if err != nil {
			return err
		}
		identity = created
		code, err = s.verification.issueWith(ctx, tx, created)
		return err
	})
	if err != nil {
		return nil, internalError(err)
	}

	s.metrics.Event(metrics.EventRegistered)
	s.logger.Info(ctx, "identity registered", "identity_id", identity.ID, "role", string(identity.Role))
	s.sendVerificationCode(ctx, identity, code)
	return identity, nil
}

// Login checks the password and returns a session token. Unknown names and
// wrong passwords give the same error after the same hashing work; the status is only revealed to
// someone who knows the password.
func (s *IdentityService) Login(ctx context.Context, userName, password string) (string, error) {
	identity, err := s.repos.Identities(s.txm.Conn()).GetByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = s.credentials.ValidateLogin(absentIdentity, password)
			s.metrics.Event(metrics.EventLoginFailed)
			return "", common.ErrIncorrectCredential
		}
		return "", internalError(err)
	}

	if err := s.credentials.ValidateLogin(identity, password); err != nil {
		s.metrics.Event(metrics.EventLoginFailed)
		return "", err
	}
	if identity.Status != models.StatusActive {
		s.metrics.Event(metrics.EventLoginFailed)
		return "", fmt.Errorf("%w: status is %s", common.ErrIdentityNotActive, identity.Status)
	}

	token, err := s.sessions.Issue(identity.ID, identity.UserName, identity.Role, identity.Status)
	if err != nil {
		return "", internalError(err)
	}

	s.metrics.Event(metrics.EventLoginSucceeded)
	s.logger.Info(ctx, "login", "identity_id", identity.ID)
	return token, nil
}

// ResendVerification issues a fresh code for a Pending identity.
func (s *IdentityService) ResendVerification(ctx context.Context, userName string) error {
	identity, err := s.byUserName(ctx, userName)
	if err != nil {
		return err
	}

	code, err := s.verification.Issue(ctx, identity)
	if err != nil {
		return err
	}
	s.sendVerificationCode(ctx, identity, code)
	return nil
}

// Verify redeems a verification code for the named identity.
func (s *IdentityService) Verify(ctx context.Context, userName, code string) error {
	identity, err := s.byUserName(ctx, userName)
	if err != nil {
		return err
	}
	if err := s.verification.Redeem(ctx, identity, code); err != nil {
		return err
	}
	s.metrics.Event(metrics.EventVerified)
	return nil
}

// RequestPasswordReset sends a reset token to the named identity. Unknown
// names succeed silently so the call does not reveal which accounts exist.
func (s *IdentityService) RequestPasswordReset(ctx context.Context, userName string) error {
	identity, err := s.repos.Identities(s.txm.Conn()).GetByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "password reset requested for unknown username")
			return nil
		}
		return internalError(err)
	}
	if identity.Status == models.StatusDisabled {
		return common.ErrIdentityNotActive
	}

	token, err := s.reset.IssueResetToken(ctx, identity)
	if err != nil {
		return err
	}

	s.metrics.Event(metrics.EventResetRequested)
	if err := s.notifier.SendPasswordReset(ctx, identity, token); err != nil {
		s.metrics.Event(metrics.EventNotifyFailed)
		s.logger.Warn(ctx, "password reset notification failed", "identity_id", identity.ID, "error", err)
	}
	return nil
}

// CheckPasswordReset reports whether token would currently be accepted.
func (s *IdentityService) CheckPasswordReset(ctx context.Context, userName, token string) error {
	identity, err := s.byUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrWrongToken
		}
		return err
	}
	return s.reset.VerifyResetToken(ctx, identity, token)
}

// ResetPassword consumes token and sets newPassword.
func (s *IdentityService) ResetPassword(ctx context.Context, userName, token, newPassword string) error {
	if err := checkPasswordPolicy(newPassword); err != nil {
		return err
	}
	identity, err := s.byUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrWrongToken
		}
		return err
	}
	return s.reset.ConsumeAndChangePassword(ctx, identity, token, newPassword)
}

// ChangePassword replaces the credential of an authenticated identity after
// checking its current password. Outstanding reset tokens are revoked.
func (s *IdentityService) ChangePassword(ctx context.Context, identityID, oldPassword, newPassword string) error {
	if err := checkPasswordPolicy(newPassword); err != nil {
		return err
	}

	var changed *models.Identity
	err := s.txm.WithTx(ctx, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		ids := s.repos.Identities(tx)
		locked, err := ids.GetByIDForUpdate(ctx, identityID)
		if err != nil {
			return err
		}
		if err := s.credentials.ValidateLogin(locked, oldPassword); err != nil {
			return err
		}

		hash, salt, err := hashNewSecret(s.hasher, newPassword)
		if err != nil {
			return err
		}
		if err := ids.UpdateCredential(ctx, locked.ID, hash, salt); err != nil {
			return err
		}
		if err := s.repos.PasswordResetTokens(tx).DeleteByIdentity(ctx, locked.ID); err != nil {
			return err
		}
		changed = locked
		return nil
	})
	if err != nil {
		return internalError(err)
	}

	s.metrics.Event(metrics.EventPasswordChanged)
	s.logger.Info(ctx, "password changed", "identity_id", identityID)
	if err := s.notifier.SendPasswordChanged(ctx, changed); err != nil {
		s.metrics.Event(metrics.EventNotifyFailed)
		s.logger.Warn(ctx, "password change notification failed", "identity_id", identityID, "error", err)
	}
	return nil
}

// Me returns the current record of the identity a session belongs to.
func (s *IdentityService) Me(ctx context.Context, identityID string) (*models.Identity, error) {
	identity, err := s.repos.Identities(s.txm.Conn()).GetByID(ctx, identityID)
	if err != nil {
		return nil, internalError(err)
	}
	return identity, nil
}

// VerifySession validates a session token. Transports call it before
// serving authenticated methods.
func (s *IdentityService) VerifySession(token string) (*auth.SessionClaims, error) {
	return s.sessions.Parse(token)
}

func (s *IdentityService) byUserName(ctx context.Context, userName string) (*models.Identity, error) {
	if strings.TrimSpace(userName) == "" {
		return nil, fmt.Errorf("%w: username is required", common.ErrInvalidArgument)
	}
	identity, err := s.repos.Identities(s.txm.Conn()).GetByUserName(ctx, userName)
	if err != nil {
		return nil, internalError(err)
	}
	return identity, nil
}

func (s *IdentityService) sendVerificationCode(ctx context.Context, identity *models.Identity, code string) {
	if err := s.notifier.SendVerificationCode(ctx, identity, code); err != nil {
		s.metrics.Event(metrics.EventNotifyFailed)
		s.logger.Warn(ctx, "verification code notification failed", "identity_id", identity.ID, "error", err)
	}
}

func checkPasswordPolicy(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrInvalidArgument, MinPasswordLength)
	}
	return nil
}
