package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// NewOpaqueToken returns nBytes of cryptographically random data, hex-encoded.
// Used for email verification challenges and password reset tokens.
func NewOpaqueToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 32 // 256 bits by default
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
