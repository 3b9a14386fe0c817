// Package auth issues and verifies HS256 session tokens signed with the
// key held by the keystore.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
	"github.com/dmitrijs2005/hrkeeper/internal/server/keystore"
	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionLifetime is how long an issued session stays valid.
const DefaultSessionLifetime = 60 * 24 * time.Hour

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	IdentityID string        `json:"identity_id"`
	UserName   string        `json:"username"`
	Role       models.Role   `json:"role"`
	Status     models.Status `json:"status"`
}

type SessionIssuer struct {
	keys     keystore.Store
	lifetime time.Duration
	now      func() time.Time
}

// NewSessionIssuer returns an issuer signing with keys. A non-positive
// lifetime falls back to DefaultSessionLifetime.
func NewSessionIssuer(keys keystore.Store, lifetime time.Duration) *SessionIssuer {
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetime
	}
	return &SessionIssuer{keys: keys, lifetime: lifetime, now: time.Now}
}

// Issue signs a session for the given identity attributes.
func (s *SessionIssuer) Issue(identityID, userName string, role models.Role, status models.Status) (string, error) {
	if identityID == "" || userName == "" || role == "" || status == "" {
		return "", fmt.Errorf("%w: session claims must not be empty", common.ErrInvalidArgument)
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
		IdentityID: identityID,
		UserName:   userName,
		Role:       role,
		Status:     status,
	})

	tokenString, err := token.SignedString(s.keys.SecretKey())
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify reports whether token is a live session signed by this process.
// It never returns false without an error.
func (s *SessionIssuer) Verify(token string) (bool, error) {
	if _, err := s.Parse(token); err != nil {
		return false, err
	}
	return true, nil
}

// Parse validates token and returns its claims. Any failure other than an
// empty token is reported as common.ErrInvalidToken.
func (s *SessionIssuer) Parse(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: token is empty", common.ErrInvalidArgument)
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.keys.SecretKey(), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: expired", common.ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.IdentityID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
