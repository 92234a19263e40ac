package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Length is the number of characters in an access token
const Length = 8

// alphabet omits characters that are easy to confuse when read off a screen (0/O, 1/I/L)
const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// RandomGenerator produces short access tokens backed by crypto/rand
type RandomGenerator struct{}

// NewRandomGenerator creates a token generator
func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

// Generate returns a random token of Length characters
func (g *RandomGenerator) Generate() (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, Length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}
