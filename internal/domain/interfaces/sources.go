package interfaces

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	domaintypes "dossier/internal/domain/types"
)

// RitualSource reads ritual metadata from the threshold network's registry.
type RitualSource interface {
	PublicKey(ctx context.Context, id domaintypes.RitualID) ([]byte, error)
	Ritual(ctx context.Context, id domaintypes.RitualID) (domaintypes.Ritual, error)
}

// GuardianLedger reports how many guardians confirmed the current deadline
// of a dossier.
type GuardianLedger interface {
	Confirmations(ctx context.Context, owner common.Address, dossierID *big.Int) (uint32, error)
}

// DossierReader reads the registry's view of a dossier.
type DossierReader interface {
	DossierState(ctx context.Context, owner common.Address, dossierID *big.Int) (domaintypes.DossierState, error)
}

// Coordinator submits a batch of per-participant decryption requests in one
// round-trip. Replies are delivered on the returned channel as they arrive;
// the channel is closed when the endpoint is done or ctx ends.
type Coordinator interface {
	Submit(ctx context.Context, batch domaintypes.DecryptionBatch) (<-chan domaintypes.ParticipantReply, error)
}
