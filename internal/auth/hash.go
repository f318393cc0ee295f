package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MB
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// HashAPIKey hashes an API key using Argon2id. The result is
// base64(salt) + "$" + base64(hash).
func HashAPIKey(apiKey string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(apiKey), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return base64.StdEncoding.EncodeToString(salt) + "$" + base64.StdEncoding.EncodeToString(hash), nil
}

// VerifyAPIKey checks an API key against an Argon2id hash in constant time.
func VerifyAPIKey(apiKey, encoded string) (bool, error) {
	saltPart, hashPart, ok := strings.Cut(encoded, "$")
	if !ok {
		return false, fmt.Errorf("auth: invalid hash format")
	}
	salt, err := base64.StdEncoding.DecodeString(saltPart)
	if err != nil {
		return false, fmt.Errorf("auth: decode salt: %w", err)
	}
	expected, err := base64.StdEncoding.DecodeString(hashPart)
	if err != nil {
		return false, fmt.Errorf("auth: decode hash: %w", err)
	}
	computed := argon2.IDKey([]byte(apiKey), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(expected, computed) == 1, nil
}

// AdminKey holds only the hash of the configured admin API key, so the
// plaintext does not stay resident after startup.
type AdminKey struct {
	hash string
}

// NewAdminKey hashes key. An empty key yields a nil *AdminKey, meaning
// authentication is disabled.
func NewAdminKey(key string) (*AdminKey, error) {
	if key == "" {
		return nil, nil
	}
	h, err := HashAPIKey(key)
	if err != nil {
		return nil, err
	}
	return &AdminKey{hash: h}, nil
}

// Verify reports whether candidate matches the admin key.
func (k *AdminKey) Verify(candidate string) bool {
	if k == nil || candidate == "" {
		return false
	}
	ok, err := VerifyAPIKey(candidate, k.hash)
	return err == nil && ok
}
