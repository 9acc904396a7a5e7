package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const defaultTokenBytes = 32

// SessionTokens issues opaque bearer tokens.
type SessionTokens struct {
	Bytes int
}

func (g SessionTokens) NewToken() (string, error) {
	n := g.Bytes
	if n <= 0 {
		n = defaultTokenBytes
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("security: read entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
