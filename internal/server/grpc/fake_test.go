package grpc

import (
	"context"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
	"github.com/dmitrijs2005/hrkeeper/internal/server/auth"
	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
	"github.com/dmitrijs2005/hrkeeper/internal/server/services"
)

// fakeIdentities answers every call with err when it is set, and records
// the last arguments otherwise.
type fakeIdentities struct {
	err      error
	sessions map[string]*auth.SessionClaims

	lastUser     string
	lastSecret   string
	lastPassword string
	lastID       string
}

func (f *fakeIdentities) Register(_ context.Context, req services.RegisterRequest) (*models.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastUser, f.lastPassword = req.UserName, req.Password
	return &models.Identity{ID: "id-" + req.UserName, UserName: req.UserName, Status: models.StatusPending}, nil
}

func (f *fakeIdentities) Verify(_ context.Context, userName, code string) error {
	f.lastUser, f.lastSecret = userName, code
	return f.err
}

func (f *fakeIdentities) ResendVerification(_ context.Context, userName string) error {
	f.lastUser = userName
	return f.err
}

func (f *fakeIdentities) Login(_ context.Context, userName, password string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.lastUser, f.lastPassword = userName, password
	return "session-" + userName, nil
}

func (f *fakeIdentities) Me(_ context.Context, identityID string) (*models.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastID = identityID
	return &models.Identity{
		ID: identityID, UserName: "alice", Email: "alice@example.com",
		Role: models.RoleUser, Status: models.StatusActive,
	}, nil
}

func (f *fakeIdentities) RequestPasswordReset(_ context.Context, userName string) error {
	f.lastUser = userName
	return f.err
}

func (f *fakeIdentities) CheckPasswordReset(_ context.Context, userName, token string) error {
	f.lastUser, f.lastSecret = userName, token
	return f.err
}

func (f *fakeIdentities) ResetPassword(_ context.Context, userName, token, newPassword string) error {
	f.lastUser, f.lastSecret, f.lastPassword = userName, token, newPassword
	return f.err
}

func (f *fakeIdentities) ChangePassword(_ context.Context, identityID, _, newPassword string) error {
	f.lastID, f.lastPassword = identityID, newPassword
	return f.err
}

func (f *fakeIdentities) VerifySession(token string) (*auth.SessionClaims, error) {
	if c, ok := f.sessions[token]; ok {
		return c, nil
	}
	return nil, common.ErrInvalidToken
}
