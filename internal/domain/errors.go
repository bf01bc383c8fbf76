package domain

import "errors"

// Failure taxonomy shared by every component. Callers match with errors.Is;
// wrapped errors never carry key material.
var (
	ErrWeakSecret      = errors.New("custody: secret is too weak")
	ErrInvalidSecret   = errors.New("custody: secret must be exactly 6 digits")
	ErrWrongSecret     = errors.New("custody: wrong secret")
	ErrBundleCorrupted = errors.New("custody: key bundle is corrupted")
	ErrNoBundle        = errors.New("custody: no key bundle on this device")
	ErrBundleExists    = errors.New("custody: key bundle already exists")

	ErrKeySourceUnavailable = errors.New("encryption: key source unavailable")
	ErrInvalidCondition     = errors.New("encryption: invalid release condition")

	ErrInsufficientShares      = errors.New("decryption: insufficient decryption shares")
	ErrShareCombinationFailure = errors.New("decryption: share combination failed")
	ErrNotReleasable           = errors.New("decryption: dossier is not releasable")
	ErrMalformedCapsule        = errors.New("decryption: malformed capsule")

	ErrInvalidGuardianThreshold = errors.New("lifecycle: guardian threshold out of range")
	ErrInvalidInterval          = errors.New("lifecycle: check-in interval must be positive")
	ErrGuardiansDisabled        = errors.New("lifecycle: dossier has no guardians")

	ErrCapsuleNotFound = errors.New("store: capsule not found")
)

// Kind names the user-visible failure class of an error.
type Kind string

const (
	KindNone                    Kind = ""
	KindWeakSecret              Kind = "WeakSecret"
	KindWrongSecret             Kind = "WrongSecret"
	KindBundleCorrupted         Kind = "BundleCorrupted"
	KindNoBundle                Kind = "NoBundle"
	KindBundleExists            Kind = "BundleExists"
	KindKeySourceUnavailable    Kind = "KeySourceUnavailable"
	KindInvalidCondition        Kind = "InvalidCondition"
	KindInsufficientShares      Kind = "InsufficientShares"
	KindShareCombinationFailure Kind = "ShareCombinationFailure"
	KindNotReleasable           Kind = "NotReleasable"
	KindInvalidDossier          Kind = "InvalidDossier"
	KindInternal                Kind = "Internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrWeakSecret, KindWeakSecret},
	{ErrInvalidSecret, KindWeakSecret},
	{ErrWrongSecret, KindWrongSecret},
	{ErrBundleCorrupted, KindBundleCorrupted},
	{ErrNoBundle, KindNoBundle},
	{ErrBundleExists, KindBundleExists},
	{ErrKeySourceUnavailable, KindKeySourceUnavailable},
	{ErrInvalidCondition, KindInvalidCondition},
	{ErrInsufficientShares, KindInsufficientShares},
	{ErrShareCombinationFailure, KindShareCombinationFailure},
	{ErrMalformedCapsule, KindShareCombinationFailure},
	{ErrNotReleasable, KindNotReleasable},
	{ErrInvalidGuardianThreshold, KindInvalidDossier},
	{ErrInvalidInterval, KindInvalidDossier},
	{ErrGuardiansDisabled, KindInvalidDossier},
}

// KindOf classifies err. Unknown errors map to KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// Retryable reports whether a fresh attempt may succeed without new input.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindKeySourceUnavailable, KindInsufficientShares, KindShareCombinationFailure:
		return true
	}
	return false
}
