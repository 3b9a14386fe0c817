package cryptox

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
)

// TokenGenerator produces opaque random strings. The same primitive backs
// salts, verification codes, reset tokens and the signing secret.
type TokenGenerator interface {
	GenerateToken(length int) (string, error)
}

// RandomTokenGenerator reads from crypto/rand.
type RandomTokenGenerator struct{}

// GenerateToken returns a random lowercase hex string of exactly length characters.
func (RandomTokenGenerator) GenerateToken(length int) (string, error) {
	return GenerateToken(length)
}

// GenerateToken returns a random lowercase hex string of exactly length characters.
func GenerateToken(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("%w: token length must be positive, got %d", common.ErrInvalidArgument, length)
	}
	// ceil(length/2) bytes give at least length hex characters
	s, err := common.MakeRandHexString((length + 1) / 2)
	if err != nil {
		return "", err
	}
	return s[:length], nil
}

// UpperTokenGenerator wraps another generator and upper-cases its output.
// Verification codes are shown to humans, who read "4F2A91" more easily.
type UpperTokenGenerator struct {
	Next TokenGenerator
}

// GenerateToken returns Next's token in upper case.
func (g UpperTokenGenerator) GenerateToken(length int) (string, error) {
	t, err := g.Next.GenerateToken(length)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(t), nil
}
