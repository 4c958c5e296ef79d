package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Generator mints ids for canonical entities and review items. The ids are
// opaque; ordering and provenance live in the audit log, not the id.
type Generator interface {
	NewID() (string, error)
}

// RandomGenerator is the production implementation, 128 bits of
// crypto/rand as hex.
type RandomGenerator struct{}

var _ Generator = (*RandomGenerator)(nil)

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

func (g *RandomGenerator) NewID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
