// Package notify hands credential messages (verification codes, reset
// tokens, change confirmations) to whatever delivers them to people.
package notify

import (
	"context"

	"github.com/dmitrijs2005/hrkeeper/internal/logging"
	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
)

// Kind names a notification type on the wire.
type Kind string

const (
	KindVerificationCode Kind = "verification_code"
	KindPasswordReset    Kind = "password_reset"
	KindPasswordChanged  Kind = "password_changed"
)

// Notifier delivers one-time secrets out of band. The plaintext secret
// passed in is never persisted by the caller.
type Notifier interface {
	SendVerificationCode(ctx context.Context, identity *models.Identity, code string) error
	SendPasswordReset(ctx context.Context, identity *models.Identity, token string) error
	SendPasswordChanged(ctx context.Context, identity *models.Identity) error
}

// Message is the JSON body published for every notification.
type Message struct {
	Kind       Kind   `json:"kind"`
	IdentityID string `json:"identity_id"`
	UserName   string `json:"username"`
	Email      string `json:"email"`
	Secret     string `json:"secret,omitempty"`
}

func newMessage(kind Kind, identity *models.Identity, secret string) Message {
	return Message{
		Kind:       kind,
		IdentityID: identity.ID,
		UserName:   identity.UserName,
		Email:      identity.Email,
		Secret:     secret,
	}
}

// LogNotifier only records that a notification would have been sent.
// Secrets are not logged, so it is useless for actually delivering them.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("module", "notify")}
}

func (n *LogNotifier) SendVerificationCode(ctx context.Context, identity *models.Identity, _ string) error {
	n.log(ctx, KindVerificationCode, identity)
	return nil
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, identity *models.Identity, _ string) error {
	n.log(ctx, KindPasswordReset, identity)
	return nil
}

func (n *LogNotifier) SendPasswordChanged(ctx context.Context, identity *models.Identity) error {
	n.log(ctx, KindPasswordChanged, identity)
	return nil
}

func (n *LogNotifier) log(ctx context.Context, kind Kind, identity *models.Identity) {
	n.logger.Info(ctx, "notification", "kind", string(kind), "identity_id", identity.ID, "email", identity.Email)
}
