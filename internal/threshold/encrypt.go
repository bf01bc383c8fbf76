package threshold

import (
	"errors"
	"fmt"

	"go.dedis.ch/kyber/v3"

	"dossier/internal/crypto"
	"dossier/internal/domain"
	"dossier/internal/util/memzero"
)

const capsuleInfo = "dossier/capsule/v1"

// Encrypt seals plaintext to the ritual public key under cond.
func Encrypt(
	publicKey []byte,
	ritual domain.RitualID,
	cond domain.ReleaseCondition,
	plaintext []byte,
) (Capsule, error) {
	X, err := DecodePublicKey(publicKey)
	if err != nil {
		return Capsule{}, err
	}

	r := suite.Scalar().Pick(suite.RandomStream())
	defer r.Zero()
	K := suite.Point().Mul(r, nil)
	S := suite.Point().Mul(r, X)
	defer S.Null()

	c := Capsule{
		Version:   CapsuleVersion,
		RitualID:  ritual,
		Condition: cond,
		K:         encodePoint(K),
	}
	key, err := dataKey(S, c)
	if err != nil {
		return Capsule{}, err
	}
	defer memzero.Zero(key)

	header, err := c.Header()
	if err != nil {
		return Capsule{}, err
	}
	c.Nonce, c.Ciphertext, err = crypto.Seal(key, plaintext, header)
	if err != nil {
		return Capsule{}, err
	}
	return c, nil
}

// Open recovers the plaintext of c from the shared secret S = rX.
func Open(c Capsule, S kyber.Point) ([]byte, error) {
	key, err := dataKey(S, c)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	header, err := c.Header()
	if err != nil {
		return nil, err
	}
	pt, err := crypto.Open(key, c.Nonce, c.Ciphertext, header)
	if errors.Is(err, crypto.ErrAuthFailed) {
		return nil, fmt.Errorf("%w: capsule did not authenticate", domain.ErrShareCombinationFailure)
	}
	return pt, err
}

func dataKey(S kyber.Point, c Capsule) ([]byte, error) {
	secret := encodePoint(S)
	defer memzero.Zero(secret)

	cond := c.Condition.Bytes()
	info := make([]byte, 0, len(capsuleInfo)+len(cond))
	info = append(info, capsuleInfo...)
	info = append(info, cond...)
	return crypto.DeriveKey(secret, c.K, info)
}
