// Package auth issues and verifies Scribe API tokens. Tokens are opaque
// random values shown once at creation; only the sha256 hash is stored.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const tokenPrefix = "scribe_"

// prefixLen is how much of the raw token is kept in clear for display
// ("scribe_a1b2c…").
const prefixLen = 12

var ErrInvalidToken = errors.New("invalid token")

// NewToken generates a raw API token. The raw value is returned exactly
// once; callers store only its hash.
func NewToken() (string, error) {
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return tokenPrefix + hex.EncodeToString(bytes), nil
}

// HashToken returns the hex sha256 of a raw token for storage and lookup.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// DisplayPrefix returns the short clear-text prefix stored alongside the
// hash so users can recognize their tokens.
func DisplayPrefix(raw string) string {
	if len(raw) < prefixLen {
		return raw
	}
	return raw[:prefixLen]
}

// Validate checks the token's shape before any storage lookup.
func Validate(raw string) error {
	if !strings.HasPrefix(raw, tokenPrefix) {
		return ErrInvalidToken
	}
	return nil
}

// BearerToken extracts the bearer token from an Authorization header, or
// returns "".
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
