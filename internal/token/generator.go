// Package token mints the opaque identifier strings used for skill linking:
// authorization codes, access tokens and refresh tokens. Values are drawn
// uniformly from an alphanumeric alphabet using crypto/rand only; there is no
// fallback to a weaker source. The "Atza1|"/"Atzr1|" prefixes are opaque
// class tags so a human inspecting a log can tell token classes apart; no
// code parses them for semantics.
package token

import (
	"crypto/rand"
	"fmt"
)

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// AccessTokenPrefix tags access tokens.
	AccessTokenPrefix = "Atza1|"
	// RefreshTokenPrefix tags refresh tokens.
	RefreshTokenPrefix = "Atzr1|"

	tokenLength = 32
	codeLength  = 16
)

// NewIdentifier returns a cryptographically random alphanumeric string of
// length n. Uses rejection sampling so the distribution stays uniform.
func NewIdentifier(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("identifier length must be positive, got %d", n)
	}

	// Largest multiple of len(alphabet) below 256; bytes at or above it are
	// discarded to avoid modulo bias.
	maxByte := byte(256 - 256%len(alphabet))

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("entropy source unavailable: %w", err)
		}
		for _, b := range buf {
			if b >= maxByte {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// NewAccessToken mints a bearer access token.
func NewAccessToken() (string, error) {
	id, err := NewIdentifier(tokenLength)
	if err != nil {
		return "", err
	}
	return AccessTokenPrefix + id, nil
}

// NewRefreshToken mints a refresh token.
func NewRefreshToken() (string, error) {
	id, err := NewIdentifier(tokenLength)
	if err != nil {
		return "", err
	}
	return RefreshTokenPrefix + id, nil
}

// NewAuthorizationCode mints a short-lived authorization code.
func NewAuthorizationCode() (string, error) {
	return NewIdentifier(codeLength)
}
