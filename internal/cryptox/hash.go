// Package cryptox holds the credential primitives: salted HMAC-SHA512
// hashing, random hex tokens and passphrase sealing of small secrets.
package cryptox

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
)

// Hasher turns a value and a salt into a stored digest.
// Implementations must be deterministic: verification works by re-hashing.
type Hasher interface {
	GenerateSalt(length int) (string, error)
	Hash(value, salt string) (string, error)
}

// HMACHasher implements Hasher with HMAC-SHA512 keyed by the salt.
type HMACHasher struct{}

// GenerateSalt returns a random hex salt of exactly length characters.
func (HMACHasher) GenerateSalt(length int) (string, error) {
	return GenerateSalt(length)
}

// Hash returns the hex HMAC-SHA512 of value keyed with salt.
func (HMACHasher) Hash(value, salt string) (string, error) {
	return Hash(value, salt)
}

// GenerateSalt draws length random bytes, hex encodes them and keeps the
// first length characters.
func GenerateSalt(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("%w: salt length must be positive, got %d", common.ErrInvalidArgument, length)
	}
	s, err := common.MakeRandHexString(length)
	if err != nil {
		return "", err
	}
	return s[:length], nil
}

// Hash computes HMAC-SHA512(key=salt, message=value) as lowercase hex.
func Hash(value, salt string) (string, error) {
	if value == "" {
		return "", fmt.Errorf("%w: value to hash is empty", common.ErrInvalidArgument)
	}
	if salt == "" {
		return "", fmt.Errorf("%w: salt is empty", common.ErrInvalidArgument)
	}
	mac := hmac.New(sha512.New, []byte(salt))
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Equal compares two digests in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
