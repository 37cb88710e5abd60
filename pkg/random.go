package pkg

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// GenerateRandomString returns a URL-safe, base64 encoded string of exactly
// s characters built from securely generated random bytes.
func GenerateRandomString(s int) (string, error) {
	if s <= 0 {
		return "", errors.New("random string size must be positive")
	}
	b := make([]byte, s)
	// Note that err == nil only if we read len(b) bytes.
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:s], nil
}
