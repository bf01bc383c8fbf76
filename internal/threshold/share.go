package threshold

import (
	"fmt"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/proof/dleq"
	"go.dedis.ch/kyber/v3/share"

	"dossier/internal/domain"
)

// DecryptionShare is a participant's partial decryption U_i = x_i K with
// its DLEQ proof.
type DecryptionShare struct {
	Index int    `cbor:"1,keyasint"`
	U     []byte `cbor:"2,keyasint"`
	C     []byte `cbor:"3,keyasint"`
	R     []byte `cbor:"4,keyasint"`
	VG    []byte `cbor:"5,keyasint"`
	VH    []byte `cbor:"6,keyasint"`
}

// PartialDecrypt computes the decryption share of ks for the capsule point K.
func PartialDecrypt(ks KeyShare, K []byte) (DecryptionShare, error) {
	kp, err := decodePoint(K)
	if err != nil {
		return DecryptionShare{}, err
	}
	proof, _, xK, err := dleq.NewDLEQProof(suite, suite.Point().Base(), kp, ks.Secret)
	if err != nil {
		return DecryptionShare{}, fmt.Errorf("threshold: dleq proof: %w", err)
	}
	return DecryptionShare{
		Index: ks.Index,
		U:     encodePoint(xK),
		C:     encodeScalar(proof.C),
		R:     encodeScalar(proof.R),
		VG:    encodePoint(proof.VG),
		VH:    encodePoint(proof.VH),
	}, nil
}

// VerifyShare checks ds against the participant's public share V_i and the
// capsule point K, and returns it as a share ready for combination.
func VerifyShare(ds DecryptionShare, p domain.Participant, K []byte) (*share.PubShare, error) {
	if ds.Index != p.Index {
		return nil, fmt.Errorf("threshold: share index %d does not match participant index %d", ds.Index, p.Index)
	}
	V, err := decodePoint(p.PublicShare)
	if err != nil {
		return nil, err
	}
	kp, err := decodePoint(K)
	if err != nil {
		return nil, err
	}
	U, err := decodePoint(ds.U)
	if err != nil {
		return nil, err
	}
	proof := &dleq.Proof{}
	if proof.C, err = decodeScalar(ds.C); err != nil {
		return nil, err
	}
	if proof.R, err = decodeScalar(ds.R); err != nil {
		return nil, err
	}
	if proof.VG, err = decodePoint(ds.VG); err != nil {
		return nil, err
	}
	if proof.VH, err = decodePoint(ds.VH); err != nil {
		return nil, err
	}
	if err := proof.Verify(suite, suite.Point().Base(), kp, V, U); err != nil {
		return nil, fmt.Errorf("threshold: invalid dleq proof: %w", err)
	}
	return &share.PubShare{I: ds.Index, V: U}, nil
}

// Recover interpolates t shares in the exponent to S = xK.
func Recover(shares []*share.PubShare, t, n int) (kyber.Point, error) {
	if len(shares) < t {
		return nil, fmt.Errorf("%w: have %d of %d", domain.ErrInsufficientShares, len(shares), t)
	}
	S, err := share.RecoverCommit(suite, shares, t, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrShareCombinationFailure, err)
	}
	return S, nil
}

// Combine recovers S from shares and opens c.
func Combine(c Capsule, shares []*share.PubShare, t, n int) ([]byte, error) {
	S, err := Recover(shares, t, n)
	if err != nil {
		return nil, err
	}
	defer S.Null()
	return Open(c, S)
}

// WipeShares resets every share to the identity element.
func WipeShares(shares []*share.PubShare) {
	for _, s := range shares {
		if s != nil && s.V != nil {
			s.V.Null()
		}
	}
}

// SharesWiped reports whether every share is the identity element.
func SharesWiped(shares []*share.PubShare) bool {
	null := suite.Point().Null()
	for _, s := range shares {
		if s != nil && s.V != nil && !s.V.Equal(null) {
			return false
		}
	}
	return true
}
