// Package cryptox contains the cryptographic helpers used for passwords and
// access tokens.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const (
	// SaltSize is the number of random bytes in a password salt.
	SaltSize = 32
	// AccessTokenSize is the number of random bytes in an access token.
	AccessTokenSize = 256
)

// MakeRandHexString generates size random bytes and returns them hex encoded,
// so the resulting string is 2*size characters long.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random source: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateSalt returns a fresh 64 character hex salt.
func GenerateSalt() (string, error) {
	return MakeRandHexString(SaltSize)
}

// GenerateAccessToken returns a fresh 512 character hex access token.
func GenerateAccessToken() (string, error) {
	return MakeRandHexString(AccessTokenSize)
}

// HashPassword returns hex(sha256(salt || plaintext)).
func HashPassword(salt, plaintext string) string {
	sum := sha256.Sum256([]byte(salt + plaintext))
	return hex.EncodeToString(sum[:])
}

// Equal compares two strings in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// TokenPrefix returns the first few characters of a token, for logs.
func TokenPrefix(token string) string {
	const n = 8
	if len(token) <= n {
		return token
	}
	return token[:n] + "..."
}
