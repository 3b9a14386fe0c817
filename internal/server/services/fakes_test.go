package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
	"github.com/dmitrijs2005/hrkeeper/internal/dbx"
	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
	"github.com/dmitrijs2005/hrkeeper/internal/server/notify"
	"github.com/dmitrijs2005/hrkeeper/internal/server/repositories/identities"
	"github.com/dmitrijs2005/hrkeeper/internal/server/repositories/passwordresets"
	"github.com/dmitrijs2005/hrkeeper/internal/server/repositories/verifications"
)

// memState is one snapshot of all tables.
type memState struct {
	identities map[string]models.Identity
	verifs     map[string]models.VerificationToken
	resets     map[string]models.PasswordResetToken
}

func (s *memState) clone() *memState {
	c := &memState{
		identities: make(map[string]models.Identity, len(s.identities)),
		verifs:     make(map[string]models.VerificationToken, len(s.verifs)),
		resets:     make(map[string]models.PasswordResetToken, len(s.resets)),
	}
	for k, v := range s.identities {
		c.identities[k] = v
	}
	for k, v := range s.verifs {
		c.verifs[k] = v
	}
	for k, v := range s.resets {
		c.resets[k] = v
	}
	return c
}

// memDB is an in-memory stand-in for Postgres. Transactions run one at a
// time on a private copy that replaces the committed state on success,
// which is stricter than row locks but gives the same outcomes.
type memDB struct {
	mu    sync.Mutex
	state *memState

	// failOn makes the named repository operation fail with the error.
	failOn map[string]error
	begins int
}

func newMemDB() *memDB {
	return &memDB{
		state: &memState{
			identities: map[string]models.Identity{},
			verifs:     map[string]models.VerificationToken{},
			resets:     map[string]models.PasswordResetToken{},
		},
		failOn: map[string]error{},
	}
}

// memHandle satisfies dbx.DBTX so it can travel through the manager. Its
// SQL methods are never called.
type memHandle struct {
	db *memDB
	st *memState
	tx bool
}

func (h *memHandle) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	panic("memHandle: raw SQL not supported")
}
func (h *memHandle) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	panic("memHandle: raw SQL not supported")
}
func (h *memHandle) QueryRowContext(context.Context, string, ...any) *sql.Row {
	panic("memHandle: raw SQL not supported")
}

// run executes f against the handle's state, taking the lock for
// non-transactional handles.
func (h *memHandle) run(op string, f func(st *memState) error) error {
	if !h.tx {
		h.db.mu.Lock()
		defer h.db.mu.Unlock()
	}
	if err := h.db.failOn[op]; err != nil {
		return err
	}
	st := h.st
	if !h.tx {
		st = h.db.state
	}
	return f(st)
}

func (db *memDB) Conn() dbx.DBTX {
	return &memHandle{db: db}
}

func (db *memDB) WithTx(ctx context.Context, _ *sql.TxOptions, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.begins++

	if err := db.failOn["begin"]; err != nil {
		return err
	}

	work := db.state.clone()
	if err := fn(ctx, &memHandle{db: db, st: work, tx: true}); err != nil {
		return err
	}
	if err := db.failOn["commit"]; err != nil {
		return err
	}
	db.state = work
	return nil
}

func (db *memDB) RunMigrations(context.Context, *sql.DB) error { return nil }

func (db *memDB) Identities(h dbx.DBTX) identities.Repository {
	return &memIdentities{h: h.(*memHandle)}
}

func (db *memDB) VerificationTokens(h dbx.DBTX) verifications.Repository {
	return &memVerifications{h: h.(*memHandle)}
}

func (db *memDB) PasswordResetTokens(h dbx.DBTX) passwordresets.Repository {
	return &memResets{h: h.(*memHandle)}
}

// snapshot returns a copy of the committed state.
func (db *memDB) snapshot() *memState {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.clone()
}

func (db *memDB) put(identity models.Identity) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.state.identities[identity.ID] = identity
}

type memIdentities struct{ h *memHandle }

func (r *memIdentities) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	err := r.h.run("identities.create", func(st *memState) error {
		for _, existing := range st.identities {
			if existing.UserName == identity.UserName || existing.Email == identity.Email {
				return common.ErrorAlreadyExists
			}
		}
		now := time.Now()
		identity.CreatedAt, identity.UpdatedAt = now, now
		st.identities[identity.ID] = *identity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (r *memIdentities) get(op string, match func(models.Identity) bool) (*models.Identity, error) {
	var out *models.Identity
	err := r.h.run(op, func(st *memState) error {
		for _, i := range st.identities {
			if match(i) {
				cp := i
				out = &cp
				return nil
			}
		}
		return common.ErrorNotFound
	})
	return out, err
}

func (r *memIdentities) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	return r.get("identities.get", func(i models.Identity) bool { return i.ID == id })
}

func (r *memIdentities) GetByUserName(ctx context.Context, userName string) (*models.Identity, error) {
	return r.get("identities.get", func(i models.Identity) bool { return i.UserName == userName })
}

func (r *memIdentities) GetByIDForUpdate(ctx context.Context, id string) (*models.Identity, error) {
	return r.get("identities.lock", func(i models.Identity) bool { return i.ID == id })
}

func (r *memIdentities) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	return r.h.run("identities.status", func(st *memState) error {
		i, ok := st.identities[id]
		if !ok {
			return common.ErrorNotFound
		}
		i.Status = status
		st.identities[id] = i
		return nil
	})
}

func (r *memIdentities) UpdateCredential(ctx context.Context, id string, hash, salt string) error {
	return r.h.run("identities.credential", func(st *memState) error {
		i, ok := st.identities[id]
		if !ok {
			return common.ErrorNotFound
		}
		i.PasswordHash, i.Salt = hash, salt
		st.identities[id] = i
		return nil
	})
}

type memVerifications struct{ h *memHandle }

func (r *memVerifications) Save(ctx context.Context, identityID, hashed string) error {
	return r.h.run("verifications.save", func(st *memState) error {
		st.verifs[identityID] = models.VerificationToken{IdentityID: identityID, HashedCode: hashed, CreatedAt: time.Now()}
		return nil
	})
}

func (r *memVerifications) Find(ctx context.Context, identityID string) (*models.VerificationToken, error) {
	var out *models.VerificationToken
	err := r.h.run("verifications.find", func(st *memState) error {
		t, ok := st.verifs[identityID]
		if !ok {
			return common.ErrorNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r *memVerifications) Delete(ctx context.Context, identityID string) error {
	return r.h.run("verifications.delete", func(st *memState) error {
		delete(st.verifs, identityID)
		return nil
	})
}

type memResets struct{ h *memHandle }

func (r *memResets) Create(ctx context.Context, identityID, hashed string, issuedAt time.Time) error {
	return r.h.run("resets.create", func(st *memState) error {
		if _, ok := st.resets[identityID]; ok {
			return errors.New("duplicate key value violates unique constraint")
		}
		st.resets[identityID] = models.PasswordResetToken{IdentityID: identityID, HashedToken: hashed, IssuedAt: issuedAt}
		return nil
	})
}

func (r *memResets) Find(ctx context.Context, identityID, hashed string) (*models.PasswordResetToken, error) {
	var out *models.PasswordResetToken
	err := r.h.run("resets.find", func(st *memState) error {
		t, ok := st.resets[identityID]
		if !ok || t.HashedToken != hashed {
			return common.ErrorNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r *memResets) DeleteByIdentity(ctx context.Context, identityID string) error {
	return r.h.run("resets.delete", func(st *memState) error {
		delete(st.resets, identityID)
		return nil
	})
}

// sequenceGenerator returns the queued tokens in order, then falls back to
// the last one.
type sequenceGenerator struct {
	mu     sync.Mutex
	tokens []string
	err    error
}

func (g *sequenceGenerator) GenerateToken(length int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	t := g.tokens[0]
	if len(g.tokens) > 1 {
		g.tokens = g.tokens[1:]
	}
	if len(t) > length {
		t = t[:length]
	}
	return t, nil
}

// recordingNotifier keeps every message it was asked to send.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (n *recordingNotifier) record(kind notify.Kind, identity *models.Identity, secret string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notify.Message{Kind: kind, IdentityID: identity.ID, UserName: identity.UserName, Email: identity.Email, Secret: secret})
	return n.err
}

func (n *recordingNotifier) SendVerificationCode(ctx context.Context, identity *models.Identity, code string) error {
	return n.record(notify.KindVerificationCode, identity, code)
}

func (n *recordingNotifier) SendPasswordReset(ctx context.Context, identity *models.Identity, token string) error {
	return n.record(notify.KindPasswordReset, identity, token)
}

func (n *recordingNotifier) SendPasswordChanged(ctx context.Context, identity *models.Identity) error {
	return n.record(notify.KindPasswordChanged, identity, "")
}

func (n *recordingNotifier) last() notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}
