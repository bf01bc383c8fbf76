package types

import "strconv"

// RitualID identifies a completed DKG ritual on the threshold network.
type RitualID uint32

// String returns the decimal form of the ritual identifier.
func (id RitualID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ParticipantID identifies a decryption node within a ritual. It is the
// node's provider address in hex form.
type ParticipantID string

// String returns the string form of the participant identifier.
func (id ParticipantID) String() string { return string(id) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// CID is the content address of a stored capsule.
type CID string

// String returns the string form of the content address.
func (c CID) String() string { return string(c) }
