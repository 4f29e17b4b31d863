package order

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// NewGuestToken returns a 256-bit capability token for orders placed without
// an authenticated user. It is the sole credential for guest order access.
func NewGuestToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate guest token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CheckGuestToken compares a presented token against the stored one in
// constant time. An empty stored token never matches.
func CheckGuestToken(stored, presented string) bool {
	if stored == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
