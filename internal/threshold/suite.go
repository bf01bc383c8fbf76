package threshold

import (
	"fmt"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/group/edwards25519"
)

// PointBytes is the encoded size of a group element.
const PointBytes = 32

var suite = edwards25519.NewBlakeSHA256Ed25519()

func decodePoint(b []byte) (kyber.Point, error) {
	if len(b) != PointBytes {
		return nil, fmt.Errorf("threshold: point must be %d bytes, got %d", PointBytes, len(b))
	}
	p := suite.Point()
	if err := p.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("threshold: decode point: %w", err)
	}
	return p, nil
}

// cofactor of the edwards25519 group.
const cofactor = 8

// DecodePublicKey decodes a ritual public key and rejects the identity and
// every other small-order point.
func DecodePublicKey(b []byte) (kyber.Point, error) {
	p, err := decodePoint(b)
	if err != nil {
		return nil, err
	}
	if suite.Point().Mul(suite.Scalar().SetInt64(cofactor), p).Equal(suite.Point().Null()) {
		return nil, fmt.Errorf("threshold: public key has small order")
	}
	return p, nil
}

func encodePoint(p kyber.Point) []byte {
	b, err := p.MarshalBinary()
	if err != nil {
		// Ed25519 points always marshal.
		panic(err)
	}
	return b
}

func decodeScalar(b []byte) (kyber.Scalar, error) {
	s := suite.Scalar()
	if err := s.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("threshold: decode scalar: %w", err)
	}
	return s, nil
}

func encodeScalar(s kyber.Scalar) []byte {
	b, err := s.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return b
}
