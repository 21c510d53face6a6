package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
)

// SessionTokenBytes is the amount of randomness in a session token.
const SessionTokenBytes = 32

var tokenFormatRegex = regexp.MustCompile(`^[a-f0-9]{64}$`)

// GenerateSessionToken returns a random hex token for a session cookie.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidTokenFormat reports whether token looks like a GenerateSessionToken result.
// Cookies failing this check are rejected without a Redis lookup.
func ValidTokenFormat(token string) bool {
	return tokenFormatRegex.MatchString(token)
}
