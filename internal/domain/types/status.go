package types

import "time"

// ReleaseStatus is the lifecycle state of a dossier.
type ReleaseStatus int

const (
	// StatusActive means the check-in deadline has not passed.
	StatusActive ReleaseStatus = iota
	// StatusAwaitingConfirmation means the deadline passed but the guardian
	// threshold is not yet met.
	StatusAwaitingConfirmation
	// StatusReleasable means the capsule may be decrypted.
	StatusReleasable
)

// String returns a human-readable status name.
func (s ReleaseStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusAwaitingConfirmation:
		return "awaiting-confirmation"
	case StatusReleasable:
		return "releasable"
	default:
		return "unknown"
	}
}

// Evaluation is a point-in-time view of a dossier's eligibility.
type Evaluation struct {
	Status              ReleaseStatus `json:"status"`
	ExpiresAt           time.Time     `json:"expires_at"`
	Remaining           time.Duration `json:"remaining"`
	ConfirmationsNeeded uint32        `json:"confirmations_needed"`
	State               DossierState  `json:"state"`
}
