package types

import (
	"encoding/hex"
	"fmt"
)

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// MarshalText encodes the key as hex.
func (p X25519Public) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(len(p)))
	hex.Encode(out, p[:])
	return out, nil
}

// UnmarshalText decodes a hex-encoded key.
func (p *X25519Public) UnmarshalText(text []byte) error {
	if hex.DecodedLen(len(text)) != len(p) {
		return fmt.Errorf("x25519 public key: want %d hex bytes, got %d", 2*len(p), len(text))
	}
	_, err := hex.Decode(p[:], text)
	return err
}

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }
