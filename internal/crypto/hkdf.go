package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey expands secret into a KeyBytes-long key with HKDF-SHA256.
func DeriveKey(secret, salt, info []byte) ([]byte, error) {
	out := make([]byte, KeyBytes)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), out); err != nil {
		return nil, err
	}
	return out, nil
}
