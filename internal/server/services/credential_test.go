package services

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
	"github.com/dmitrijs2005/hrkeeper/internal/cryptox"
	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenHasher struct{ err error }

func (h brokenHasher) GenerateSalt(int) (string, error)    { return "", h.err }
func (h brokenHasher) Hash(string, string) (string, error) { return "", h.err }

func storedIdentity(t *testing.T, password string) *models.Identity {
	t.Helper()
	hash, err := cryptox.HMACHasher{}.Hash(password, "0011223344556677")
	require.NoError(t, err)
	return &models.Identity{ID: "id-1", Salt: "0011223344556677", PasswordHash: hash, Status: models.StatusActive}
}

func TestValidateLogin(t *testing.T) {
	v := NewCredentialVerifier(cryptox.HMACHasher{})
	identity := storedIdentity(t, "correct horse")

	tests := []struct {
		name     string
		identity *models.Identity
		supplied string
		wantErr  error
	}{
		{"correct password", identity, "correct horse", nil},
		{"wrong password", identity, "correct horsE", common.ErrIncorrectCredential},
		{"empty password", identity, "", common.ErrIncorrectCredential},
		{"nil identity", nil, "correct horse", common.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateLogin(tt.identity, tt.supplied)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateLogin_IgnoresStatus(t *testing.T) {
	v := NewCredentialVerifier(cryptox.HMACHasher{})
	identity := storedIdentity(t, "correct horse")
	identity.Status = models.StatusPending

	assert.NoError(t, v.ValidateLogin(identity, "correct horse"))
}

func TestValidateLogin_HasherFailureIsInternal(t *testing.T) {
	v := NewCredentialVerifier(brokenHasher{err: errors.New("boom")})

	err := v.ValidateLogin(storedIdentity(t, "pw"), "pw")
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestInternalError(t *testing.T) {
	assert.NoError(t, internalError(nil))
	assert.Equal(t, common.ErrInvalidCode, internalError(common.ErrInvalidCode))

	err := internalError(errors.New("db error: conn reset"))
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.Contains(t, err.Error(), "conn reset")
}
