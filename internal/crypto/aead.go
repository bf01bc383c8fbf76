package crypto

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrAuthFailed is returned when an AEAD tag does not verify.
	ErrAuthFailed = errors.New("crypto: message authentication failed")

	errKeySize   = errors.New("crypto: invalid key size")
	errNonceSize = errors.New("crypto: invalid nonce size")
)

// Wrap seals plaintext under key with a fresh random nonce and returns the
// nonce, the ciphertext body and the detached authentication tag.
func Wrap(key, plaintext, ad []byte) (nonce, ciphertext, tag []byte, err error) {
	nonce = make([]byte, NonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, err
	}
	sealed, err := SealWithNonce(key, nonce, plaintext, ad)
	if err != nil {
		return nil, nil, nil, err
	}
	split := len(sealed) - TagBytes
	return nonce, sealed[:split:split], sealed[split:], nil
}

// Unwrap reverses Wrap. Any tampering or wrong key yields ErrAuthFailed.
func Unwrap(key, nonce, ciphertext, tag, ad []byte) ([]byte, error) {
	if len(tag) != TagBytes {
		return nil, ErrAuthFailed
	}
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	return Open(key, nonce, sealed, ad)
}

// Seal encrypts plaintext with ChaCha20-Poly1305 under a fresh random nonce.
func Seal(key, plaintext, ad []byte) (nonce, sealed []byte, err error) {
	nonce = make([]byte, NonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}
	sealed, err = SealWithNonce(key, nonce, plaintext, ad)
	if err != nil {
		return nil, nil, err
	}
	return nonce, sealed, nil
}

// SealWithNonce encrypts plaintext under key and nonce. The output carries
// the tag appended.
func SealWithNonce(key, nonce, plaintext, ad []byte) ([]byte, error) {
	if len(key) != KeyBytes {
		return nil, errKeySize
	}
	if len(nonce) != NonceBytes {
		return nil, errNonceSize
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, ad), nil
}

// Open decrypts a ChaCha20-Poly1305 ciphertext with appended tag.
func Open(key, nonce, sealed, ad []byte) ([]byte, error) {
	if len(key) != KeyBytes {
		return nil, errKeySize
	}
	if len(nonce) != NonceBytes {
		return nil, ErrAuthFailed
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, nonce, sealed, ad)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return pt, nil
}
