// Package crypto exposes the minimal primitives used by the release engine.
//
// Contents
//
//   - PBKDF2-HMAC-SHA256 key-encryption keys (DeriveKEK)
//   - ChaCha20-Poly1305 sealing with attached or detached tags (Seal, Open,
//     Wrap, Unwrap)
//   - HKDF-SHA256 key expansion (DeriveKey)
//   - X25519 key generation and Diffie–Hellman (GenerateX25519, DH)
//   - secp256k1 signing keys and their account addresses (GenerateSigningKey,
//     AddressOf)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// Fixed-size key types come from internal/domain. Callers treat returned
// secrets as sensitive and clear them with internal/util/memzero once used.
package crypto
