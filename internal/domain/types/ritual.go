package types

import "github.com/ethereum/go-ethereum/common"

// Participant is one decryption node of a ritual.
//
// Index is the node's share index (0-based). RequestKey receives the
// encrypted decryption requests; PublicShare is the node's public key share
// used to validate the partial decryptions it returns.
type Participant struct {
	Index       int            `json:"index"`
	Provider    common.Address `json:"provider"`
	RequestKey  X25519Public   `json:"request_key"`
	PublicShare []byte         `json:"public_share"`
}

// ID returns the participant identifier derived from the provider address.
func (p Participant) ID() ParticipantID { return ParticipantID(p.Provider.Hex()) }

// Ritual is a completed DKG run: one public key, a fixed participant set
// and a decryption threshold.
type Ritual struct {
	ID           RitualID      `json:"id"`
	Threshold    int           `json:"threshold"`
	PublicKey    []byte        `json:"public_key"`
	Participants []Participant `json:"participants"`
}

// Size returns the total number of participants n.
func (r Ritual) Size() int { return len(r.Participants) }
