package lifecycle

import (
	"fmt"
	"time"

	"dossier/internal/domain"
)

// NewState builds a validated dossier state. A zero guardian total disables
// the guardian gate; otherwise threshold must lie in [1, total].
func NewState(lastCheckIn time.Time, interval time.Duration, threshold, total uint32) (domain.DossierState, error) {
	if interval <= 0 {
		return domain.DossierState{}, domain.ErrInvalidInterval
	}
	if total == 0 && threshold != 0 {
		return domain.DossierState{}, fmt.Errorf("%w: threshold %d without guardians", domain.ErrInvalidGuardianThreshold, threshold)
	}
	if total > 0 && (threshold < 1 || threshold > total) {
		return domain.DossierState{}, fmt.Errorf("%w: %d of %d", domain.ErrInvalidGuardianThreshold, threshold, total)
	}
	return domain.DossierState{
		LastCheckIn:       lastCheckIn,
		CheckInInterval:   interval,
		GuardianThreshold: threshold,
		GuardianTotal:     total,
	}, nil
}

// Derive returns the status of s at now.
func Derive(s domain.DossierState, now time.Time) domain.ReleaseStatus {
	switch {
	case !s.IsExpired(now):
		return domain.StatusActive
	case s.IsReleasable(now):
		return domain.StatusReleasable
	default:
		return domain.StatusAwaitingConfirmation
	}
}

// Evaluate returns the full point-in-time view of s at now.
func Evaluate(s domain.DossierState, now time.Time) domain.Evaluation {
	ev := domain.Evaluation{
		Status:    Derive(s, now),
		ExpiresAt: s.ExpiresAt(),
		State:     s,
	}
	if rem := ev.ExpiresAt.Sub(now); rem > 0 {
		ev.Remaining = rem
	}
	if s.GuardiansEnabled() && s.GuardianConfirmations < s.GuardianThreshold {
		ev.ConfirmationsNeeded = s.GuardianThreshold - s.GuardianConfirmations
	}
	return ev
}

// CheckIn restarts the deadline at now. Confirmations collected for the
// previous deadline no longer count.
func CheckIn(s domain.DossierState, now time.Time) domain.DossierState {
	s.LastCheckIn = now
	s.GuardianConfirmations = 0
	return s
}

// Confirm records one more guardian confirmation. The count never exceeds
// the number of guardians.
func Confirm(s domain.DossierState) (domain.DossierState, error) {
	if !s.GuardiansEnabled() {
		return s, domain.ErrGuardiansDisabled
	}
	if s.GuardianConfirmations < s.GuardianTotal {
		s.GuardianConfirmations++
	}
	return s, nil
}
