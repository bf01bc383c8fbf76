package interfaces

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	domaintypes "dossier/internal/domain/types"
)

// CustodyService wraps the device signing key behind a numeric secret.
type CustodyService interface {
	Create(secret string) (common.Address, error)
	Unlock(secret string) (*ecdsa.PrivateKey, error)
	ChangeSecret(oldSecret, newSecret string) error
	Reset() error
	Address() (common.Address, error)
}

// EncryptionService produces capsules bound to a release condition.
type EncryptionService interface {
	Encrypt(
		ctx context.Context,
		plaintext []byte,
		owner common.Address,
		dossierID *big.Int,
		ritual domaintypes.RitualID,
	) ([]byte, error)
}

// DecryptionService recovers plaintext from a capsule with a quorum of
// decryption shares.
type DecryptionService interface {
	Decrypt(ctx context.Context, capsule []byte) ([]byte, error)
}

// LifecycleTracker derives a dossier's release eligibility.
type LifecycleTracker interface {
	Evaluate(ctx context.Context, dossier domaintypes.Dossier) (domaintypes.Evaluation, error)
	EvaluateAt(dossier domaintypes.DossierState, now time.Time) domaintypes.Evaluation
}
