package auth

import (
	"crypto/rand"
	"encoding/hex"
)

// NewAPIKey returns an opaque bearer secret handed to users at registration
// when the deployment runs the key+token model. 24 random bytes encode to a
// 48-character hex string.
func NewAPIKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
