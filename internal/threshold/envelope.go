package threshold

import (
	"encoding/binary"
	"errors"
	"fmt"

	"dossier/internal/crypto"
	"dossier/internal/domain"
	"dossier/internal/util/memzero"
)

const pairInfo = "dossier-decrypt-request/v1"

var (
	requestLabel  = []byte("dossier/request")
	responseLabel = []byte("dossier/response")

	// ErrEnvelope is returned for envelopes that fail to parse or authenticate.
	ErrEnvelope = errors.New("threshold: malformed or unauthenticated envelope")
)

// Request asks one participant for its decryption share of a capsule.
type Request struct {
	RitualID  domain.RitualID         `cbor:"1,keyasint"`
	K         []byte                  `cbor:"2,keyasint"`
	Condition domain.ReleaseCondition `cbor:"3,keyasint"`
}

// Response carries a participant's decryption share.
type Response struct {
	Share DecryptionShare `cbor:"1,keyasint"`
}

// PairKey derives the symmetric key shared by a requester session and one
// participant. local and remote are the caller's private key and the peer's
// public key; ephemeral and participant are the two public keys in fixed
// order so both sides derive the same key.
func PairKey(
	local domain.X25519Private,
	remote domain.X25519Public,
	ephemeral domain.X25519Public,
	participant domain.X25519Public,
) ([]byte, error) {
	shared, err := crypto.DH(local, remote)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(shared[:])

	salt := make([]byte, 0, 64)
	salt = append(salt, ephemeral[:]...)
	salt = append(salt, participant[:]...)
	return crypto.DeriveKey(shared[:], salt, []byte(pairInfo))
}

// SealRequest encrypts req under pairKey. The envelope carries the
// session's ephemeral public key in the clear so the participant can derive
// the same key: ephemeral(32) | nonce | sealed.
func SealRequest(pairKey []byte, ephemeral domain.X25519Public, req Request) ([]byte, error) {
	payload, err := encMode.Marshal(req)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(payload)

	nonce, sealed, err := crypto.Seal(pairKey, payload, envelopeAD(requestLabel, req.RitualID))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(ephemeral)+len(nonce)+len(sealed))
	out = append(out, ephemeral[:]...)
	out = append(out, nonce...)
	return append(out, sealed...), nil
}

// RequestSender returns the ephemeral public key of a request envelope.
func RequestSender(envelope []byte) (domain.X25519Public, error) {
	var eph domain.X25519Public
	if len(envelope) < len(eph)+crypto.NonceBytes+crypto.TagBytes {
		return eph, ErrEnvelope
	}
	copy(eph[:], envelope)
	return eph, nil
}

// OpenRequest decrypts a request envelope for ritual.
func OpenRequest(pairKey []byte, ritual domain.RitualID, envelope []byte) (Request, error) {
	if len(envelope) < 32+crypto.NonceBytes+crypto.TagBytes {
		return Request{}, ErrEnvelope
	}
	body := envelope[32:]
	payload, err := crypto.Open(pairKey, body[:crypto.NonceBytes], body[crypto.NonceBytes:], envelopeAD(requestLabel, ritual))
	if err != nil {
		return Request{}, ErrEnvelope
	}
	defer memzero.Zero(payload)

	var req Request
	if err := decMode.Unmarshal(payload, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrEnvelope, err)
	}
	return req, nil
}

// SealResponse encrypts resp under pairKey as nonce | sealed.
func SealResponse(pairKey []byte, ritual domain.RitualID, resp Response) ([]byte, error) {
	payload, err := encMode.Marshal(resp)
	if err != nil {
		return nil, err
	}
	nonce, sealed, err := crypto.Seal(pairKey, payload, envelopeAD(responseLabel, ritual))
	if err != nil {
		return nil, err
	}
	return append(nonce, sealed...), nil
}

// OpenResponse decrypts a response envelope.
func OpenResponse(pairKey []byte, ritual domain.RitualID, envelope []byte) (Response, error) {
	if len(envelope) < crypto.NonceBytes+crypto.TagBytes {
		return Response{}, ErrEnvelope
	}
	payload, err := crypto.Open(pairKey, envelope[:crypto.NonceBytes], envelope[crypto.NonceBytes:], envelopeAD(responseLabel, ritual))
	if err != nil {
		return Response{}, ErrEnvelope
	}
	defer memzero.Zero(payload)

	var resp Response
	if err := decMode.Unmarshal(payload, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrEnvelope, err)
	}
	return resp, nil
}

func envelopeAD(label []byte, ritual domain.RitualID) []byte {
	ad := make([]byte, len(label)+4)
	copy(ad, label)
	binary.BigEndian.PutUint32(ad[len(label):], uint32(ritual))
	return ad
}
