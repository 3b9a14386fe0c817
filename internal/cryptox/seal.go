package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	sealSaltSize = 16
	sealKeySize  = 32
)

// ErrSealCorrupted is returned when a sealed blob is too short or fails
// authentication (wrong passphrase or tampered data).
var ErrSealCorrupted = errors.New("sealed data corrupted or passphrase mismatch")

// DeriveKey stretches a passphrase into an AES-256 key with Argon2id.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, sealKeySize)
}

// SealWithPassphrase encrypts plaintext with AES-GCM under a key derived
// from passphrase. Layout of the result: salt | nonce | ciphertext.
func SealWithPassphrase(plaintext, passphrase []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("%w: passphrase is empty", common.ErrInvalidArgument)
	}

	salt := common.GenerateRandByteArray(sealSaltSize)
	key := DeriveKey(passphrase, salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())

	out := make([]byte, 0, len(salt)+len(nonce)+len(plaintext)+aesgcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aesgcm.Seal(out, nonce, plaintext, nil), nil
}

// OpenWithPassphrase reverses SealWithPassphrase.
func OpenWithPassphrase(sealed, passphrase []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("%w: passphrase is empty", common.ErrInvalidArgument)
	}
	if len(sealed) < sealSaltSize {
		return nil, ErrSealCorrupted
	}

	salt := sealed[:sealSaltSize]
	key := DeriveKey(passphrase, salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	rest := sealed[sealSaltSize:]
	if len(rest) < aesgcm.NonceSize()+aesgcm.Overhead() {
		return nil, ErrSealCorrupted
	}
	nonce, ciphertext := rest[:aesgcm.NonceSize()], rest[aesgcm.NonceSize():]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrSealCorrupted
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
