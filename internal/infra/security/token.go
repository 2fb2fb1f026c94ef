package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	defaultTokenSize = 32
	minTokenSize     = 16
)

// RandomTokenGenerator issues opaque session tokens. Size is in bytes of
// entropy; sizes below 16 are raised to 16.
type RandomTokenGenerator struct {
	Size int
}

func (g RandomTokenGenerator) NewToken() (string, error) {
	size := g.Size
	switch {
	case size <= 0:
		size = defaultTokenSize
	case size < minTokenSize:
		size = minTokenSize
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("security: session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
