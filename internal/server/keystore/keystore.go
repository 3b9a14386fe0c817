// Package keystore holds the process-wide secret used to sign session
// tokens. The key is fixed at construction and never changes afterwards.
package keystore

import (
	"github.com/dmitrijs2005/hrkeeper/internal/cryptox"
)

// KeyLength is the number of characters in a generated signing key.
const KeyLength = 16

// Store exposes the signing key. Implementations are safe for concurrent use.
type Store interface {
	SecretKey() []byte
}

// MemoryStore keeps a key generated at boot. Restarting the process
// invalidates every session issued before.
type MemoryStore struct {
	key []byte
}

func NewMemoryStore(gen cryptox.TokenGenerator) (*MemoryStore, error) {
	k, err := gen.GenerateToken(KeyLength)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{key: []byte(k)}, nil
}

// SecretKey returns a copy so callers cannot mutate the stored key.
func (s *MemoryStore) SecretKey() []byte {
	return append([]byte(nil), s.key...)
}
