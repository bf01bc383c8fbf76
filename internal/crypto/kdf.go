package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

const (
	KeyBytes   = 32
	SaltBytes  = 16
	NonceBytes = chacha20poly1305.NonceSize
	TagBytes   = chacha20poly1305.Overhead

	// MinKDFIterations is the lowest PBKDF2 work factor accepted for a
	// production bundle.
	MinKDFIterations = 150_000
	// DefaultKDFIterations is the work factor used for new bundles.
	DefaultKDFIterations = 210_000

	KDFName = "pbkdf2-sha256"
)

// DeriveKEK derives a 256-bit key-encryption key from secret and salt with
// PBKDF2-HMAC-SHA256.
func DeriveKEK(secret, salt []byte, iterations int) []byte {
	return pbkdf2.Key(secret, salt, iterations, KeyBytes, sha256.New)
}
