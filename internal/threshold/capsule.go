package threshold

import (
	"fmt"

	"dossier/internal/domain"
)

// CapsuleVersion is the only capsule layout this package produces.
const CapsuleVersion = 1

// Capsule is the decoded form of an encryption capsule.
type Capsule struct {
	Version    uint8                   `cbor:"1,keyasint"`
	RitualID   domain.RitualID         `cbor:"2,keyasint"`
	Condition  domain.ReleaseCondition `cbor:"3,keyasint"`
	K          []byte                  `cbor:"4,keyasint"`
	Nonce      []byte                  `cbor:"5,keyasint"`
	Ciphertext []byte                  `cbor:"6,keyasint"`
}

type capsuleHeader struct {
	Version   uint8           `cbor:"1,keyasint"`
	RitualID  domain.RitualID `cbor:"2,keyasint"`
	Condition []byte          `cbor:"3,keyasint"`
	K         []byte          `cbor:"4,keyasint"`
}

// Header returns the deterministic encoding of everything in the capsule
// except the sealed payload. It is the payload's associated data, so
// changing the ritual, the condition or K makes the capsule unopenable.
func (c Capsule) Header() ([]byte, error) {
	return encMode.Marshal(capsuleHeader{
		Version:   c.Version,
		RitualID:  c.RitualID,
		Condition: c.Condition.Bytes(),
		K:         c.K,
	})
}

// Marshal returns the deterministic CBOR encoding of c.
func (c Capsule) Marshal() ([]byte, error) {
	return encMode.Marshal(c)
}

// ParseCapsule decodes and validates capsule bytes.
func ParseCapsule(b []byte) (Capsule, error) {
	var c Capsule
	if err := decMode.Unmarshal(b, &c); err != nil {
		return Capsule{}, fmt.Errorf("%w: %v", domain.ErrMalformedCapsule, err)
	}
	switch {
	case c.Version != CapsuleVersion:
		return Capsule{}, fmt.Errorf("%w: unsupported version %d", domain.ErrMalformedCapsule, c.Version)
	case len(c.K) != PointBytes:
		return Capsule{}, fmt.Errorf("%w: bad ephemeral point", domain.ErrMalformedCapsule)
	case len(c.Nonce) == 0, len(c.Ciphertext) == 0:
		return Capsule{}, fmt.Errorf("%w: missing payload", domain.ErrMalformedCapsule)
	}
	if _, err := decodePoint(c.K); err != nil {
		return Capsule{}, fmt.Errorf("%w: %v", domain.ErrMalformedCapsule, err)
	}
	return c, nil
}
