package threshold

import (
	"fmt"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/share"
)

// KeyShare is one participant's secret share x_i of the ritual key.
type KeyShare struct {
	Index  int
	Secret kyber.Scalar
}

// Wipe clears the secret scalar.
func (k KeyShare) Wipe() {
	if k.Secret != nil {
		k.Secret.Zero()
	}
}

// Dealing is the output of a trusted-dealer key generation.
type Dealing struct {
	Threshold    int
	PublicKey    []byte
	Shares       []KeyShare
	PublicShares [][]byte
}

// Deal splits a fresh random key into n shares with threshold t.
func Deal(t, n int) (Dealing, error) {
	if t < 1 || t > n {
		return Dealing{}, fmt.Errorf("threshold: need 1 <= t <= n, got t=%d n=%d", t, n)
	}
	poly := share.NewPriPoly(suite, t, nil, suite.RandomStream())
	pub := poly.Commit(nil)

	d := Dealing{
		Threshold:    t,
		PublicKey:    encodePoint(pub.Commit()),
		Shares:       make([]KeyShare, n),
		PublicShares: make([][]byte, n),
	}
	for i, s := range poly.Shares(n) {
		d.Shares[i] = KeyShare{Index: s.I, Secret: s.V}
	}
	for i, s := range pub.Shares(n) {
		d.PublicShares[i] = encodePoint(s.V)
	}
	return d, nil
}
