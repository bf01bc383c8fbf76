package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"

	"dossier/internal/domain"
)

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub []byte) domain.Fingerprint {
	sum := sha256.Sum256(pub)
	return domain.Fingerprint(hex.EncodeToString(sum[:10]))
}

// AddressFingerprint fingerprints a device address for display next to it.
func AddressFingerprint(addr common.Address) domain.Fingerprint {
	return Fingerprint(addr.Bytes())
}
