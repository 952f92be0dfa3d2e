package main

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

// Credential shape constants. The API key has a fixed recognizable prefix and
// a fixed-length alphanumeric suffix; validators accept exactly this shape.
const (
	// APIKeyPrefix marks Tidegate API credentials.
	APIKeyPrefix = "tgk_"

	// APIKeySuffixLength is the length of the random alphanumeric suffix.
	APIKeySuffixLength = 32

	// PasswordLength is the length of generated passwords and the
	// application secret. 32 alphanumerics ≈ 190 bits of entropy, above the
	// 128-bit floor.
	PasswordLength = 32
)

// alphanumeric is the generation alphabet: printable, shell-safe, and safe to
// embed unquoted in env files and compose command lines.
const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var apiKeyPattern = regexp.MustCompile(`^tgk_[a-zA-Z0-9]{32}$`)

// SecretGenerator produces cryptographically adequate random credentials.
//
// Every generated value draws fresh randomness; values are never reused
// across fields. The zero value is ready to use.
type SecretGenerator struct{}

// NewSecretGenerator creates a generator.
func NewSecretGenerator() *SecretGenerator {
	return &SecretGenerator{}
}

// RandomAlphanumeric returns n characters drawn uniformly from the
// alphanumeric alphabet using crypto/rand.
func (g *SecretGenerator) RandomAlphanumeric(n int) (string, error) {
	max := big.NewInt(int64(len(alphanumeric)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading randomness: %w", err)
		}
		buf[i] = alphanumeric[idx.Int64()]
	}
	return string(buf), nil
}

// APIKey returns a fresh credential of the form tgk_<32 alphanumerics>.
func (g *SecretGenerator) APIKey() (string, error) {
	suffix, err := g.RandomAlphanumeric(APIKeySuffixLength)
	if err != nil {
		return "", err
	}
	return APIKeyPrefix + suffix, nil
}

// Password returns a fresh 32-character alphanumeric password.
func (g *SecretGenerator) Password() (string, error) {
	return g.RandomAlphanumeric(PasswordLength)
}

// ValidAPIKey reports whether a value matches the required credential shape.
// Empty and short values are rejected.
func ValidAPIKey(v string) bool {
	return apiKeyPattern.MatchString(v)
}
