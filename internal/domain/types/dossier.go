package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DossierState is the release-relevant state of a dossier. It is derived
// from the registry and never stored locally.
type DossierState struct {
	LastCheckIn           time.Time     `json:"last_check_in"`
	CheckInInterval       time.Duration `json:"check_in_interval"`
	GuardianThreshold     uint32        `json:"guardian_threshold"`
	GuardianConfirmations uint32        `json:"guardian_confirmations"`
	GuardianTotal         uint32        `json:"guardian_total"`
}

// ExpiresAt is the check-in deadline.
func (s DossierState) ExpiresAt() time.Time { return s.LastCheckIn.Add(s.CheckInInterval) }

// IsExpired reports whether the deadline has passed at now.
func (s DossierState) IsExpired(now time.Time) bool { return !now.Before(s.ExpiresAt()) }

// GuardiansEnabled reports whether a multi-party gate applies.
func (s DossierState) GuardiansEnabled() bool { return s.GuardianTotal > 0 }

// IsReleasable reports whether the dossier may be decrypted at now.
func (s DossierState) IsReleasable(now time.Time) bool {
	if !s.IsExpired(now) {
		return false
	}
	return !s.GuardiansEnabled() || s.GuardianConfirmations >= s.GuardianThreshold
}

// Dossier binds a stored capsule to its owner, identifier and ritual.
type Dossier struct {
	Owner    common.Address `json:"owner"`
	ID       *big.Int       `json:"id"`
	RitualID RitualID       `json:"ritual_id"`
	Capsule  CID            `json:"capsule"`
	State    DossierState   `json:"state"`
}
