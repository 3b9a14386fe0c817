package services

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/hrkeeper/internal/cryptox"
	"github.com/dmitrijs2005/hrkeeper/internal/logging"
	"github.com/dmitrijs2005/hrkeeper/internal/server/auth"
	"github.com/dmitrijs2005/hrkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
	"github.com/stretchr/testify/require"
)

type staticKey []byte

func (k staticKey) SecretKey() []byte { return []byte(k) }

type testEnv struct {
	db           *memDB
	hasher       cryptox.HMACHasher
	codes        *sequenceGenerator
	tokens       *sequenceGenerator
	notifier     *recordingNotifier
	metrics      *metrics.Metrics
	verification *VerificationWorkflow
	reset        *PasswordResetWorkflow
	sessions     *auth.SessionIssuer
	svc          *IdentityService
	now          time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	e := &testEnv{
		db:       newMemDB(),
		codes:    &sequenceGenerator{tokens: []string{"4f2a91"}},
		tokens:   &sequenceGenerator{tokens: []string{"0123456789abcdef"}},
		notifier: &recordingNotifier{},
		metrics:  metrics.New(),
		sessions: auth.NewSessionIssuer(staticKey("0123456789abcdef"), 0),
		now:      time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	e.verification = NewVerificationWorkflow(e.db, e.db, e.hasher, e.codes, logging.Nop{})
	e.reset = NewPasswordResetWorkflow(e.db, e.db, e.hasher, e.tokens, e.notifier, e.metrics, time.Hour, logging.Nop{})
	e.reset.now = func() time.Time { return e.now }
	e.svc = NewIdentityService(e.db, e.db, e.hasher, e.verification, e.reset, e.sessions, e.notifier, e.metrics, logging.Nop{})
	return e
}

// seed stores an identity with the given status and password.
func (e *testEnv) seed(t *testing.T, userName string, status models.Status, password string) *models.Identity {
	t.Helper()

	salt := "a1b2c3d4e5f60718"
	hash, err := e.hasher.Hash(password, salt)
	require.NoError(t, err)

	identity := models.Identity{
		ID:           "id-" + userName,
		UserName:     userName,
		Email:        userName + "@example.com",
		PasswordHash: hash,
		Salt:         salt,
		Role:         models.RoleUser,
		Status:       status,
	}
	e.db.put(identity)
	return &identity
}

func (e *testEnv) identity(t *testing.T, id string) models.Identity {
	t.Helper()
	i, ok := e.db.snapshot().identities[id]
	require.True(t, ok, "identity %s not stored", id)
	return i
}
