package cryptox

import (
	"encoding/hex"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/crypto/argon2"
)

const argon2Prefix = "$argon2id$"

// Hasher turns a salt and a plaintext password into the stored hash.
type Hasher interface {
	Name() string
	Hash(salt, plaintext string) string
}

// SHA256Hasher is the default hasher, see HashPassword.
type SHA256Hasher struct{}

func (SHA256Hasher) Name() string { return "sha256" }

func (SHA256Hasher) Hash(salt, plaintext string) string {
	return HashPassword(salt, plaintext)
}

// Argon2Hasher derives the hash with argon2id. Its output carries a prefix
// so that Verify can tell it apart from sha256 hashes.
type Argon2Hasher struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

// NewArgon2Hasher returns an argon2id hasher with the usual interactive parameters.
func NewArgon2Hasher() Argon2Hasher {
	return Argon2Hasher{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32}
}

func (Argon2Hasher) Name() string { return "argon2id" }

func (h Argon2Hasher) Hash(salt, plaintext string) string {
	key := argon2.IDKey([]byte(plaintext), []byte(salt), h.Time, h.Memory, h.Threads, h.KeyLen)
	return argon2Prefix + hex.EncodeToString(key)
}

// NewHasher resolves a hasher by its configured name.
func NewHasher(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha256":
		return SHA256Hasher{}, nil
	case "argon2id", "argon2":
		return NewArgon2Hasher(), nil
	default:
		return nil, common.ErrUnknownHasher
	}
}

// Verify checks plaintext against a stored hash produced by any supported
// hasher. Argon2 hashes are recognised by their prefix.
func Verify(salt, plaintext, hashed string) bool {
	var h Hasher = SHA256Hasher{}
	if strings.HasPrefix(hashed, argon2Prefix) {
		h = NewArgon2Hasher()
	}
	return Equal(h.Hash(salt, plaintext), hashed)
}
