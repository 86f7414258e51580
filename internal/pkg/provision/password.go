package provision

import (
	"crypto/rand"
	"encoding/base64"
)

// generatePassword returns a cryptographically random one-time password for
// the provisioned seller. It is submitted upstream and never stored or
// logged here.
func generatePassword(size int) (string, error) {
	if size < 16 {
		size = 16
	}
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
