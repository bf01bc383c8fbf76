package chain

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"dossier/internal/domain"
)

// DossierRegistry reads dossier state and guardian confirmations from the
// dossier registry contract. The registry reports confirmations for the
// current check-in period only.
type DossierRegistry struct {
	c contract
}

// NewDossierRegistry returns a DossierRegistry for the contract at address.
func NewDossierRegistry(caller ethereum.ContractCaller, address common.Address) *DossierRegistry {
	return &DossierRegistry{c: contract{caller: caller, address: address, abi: RegistryABI}}
}

// maxCheckIn bounds registry timestamps so that deadlines stay representable
// as time.Time (about year 36800).
const maxCheckIn = 1 << 40

// DossierState returns the registered state of (owner, id).
func (r *DossierRegistry) DossierState(ctx context.Context, owner common.Address, id *big.Int) (domain.DossierState, error) {
	vals, err := r.c.call(ctx, "getDossier", owner, id)
	if err != nil {
		return domain.DossierState{}, err
	}
	lastCheckIn, ok0 := vals[0].(uint64)
	interval, ok1 := vals[1].(uint64)
	threshold, ok2 := vals[2].(uint32)
	total, ok3 := vals[3].(uint32)
	if !ok0 || !ok1 || !ok2 || !ok3 {
		return domain.DossierState{}, fmt.Errorf("dossier %s/%s: unexpected getDossier output", owner.Hex(), id)
	}
	if interval == 0 || interval > math.MaxInt64/uint64(time.Second) {
		return domain.DossierState{}, fmt.Errorf("dossier %s/%s: %w", owner.Hex(), id, domain.ErrInvalidInterval)
	}
	if lastCheckIn > maxCheckIn {
		return domain.DossierState{}, fmt.Errorf("dossier %s/%s: last check-in %d out of range", owner.Hex(), id, lastCheckIn)
	}
	state := domain.DossierState{
		LastCheckIn:       time.Unix(int64(lastCheckIn), 0).UTC(),
		CheckInInterval:   time.Duration(interval) * time.Second,
		GuardianThreshold: threshold,
		GuardianTotal:     total,
	}
	if total > 0 && (threshold < 1 || threshold > total) {
		return domain.DossierState{}, fmt.Errorf("dossier %s/%s: %w", owner.Hex(), id, domain.ErrInvalidGuardianThreshold)
	}
	if state.GuardiansEnabled() {
		n, err := r.Confirmations(ctx, owner, id)
		if err != nil {
			return domain.DossierState{}, err
		}
		state.GuardianConfirmations = min(n, total)
	}
	return state, nil
}

// Confirmations returns the guardian confirmations recorded for (owner, id).
func (r *DossierRegistry) Confirmations(ctx context.Context, owner common.Address, id *big.Int) (uint32, error) {
	vals, err := r.c.call(ctx, "getGuardianConfirmations", owner, id)
	if err != nil {
		return 0, err
	}
	n, ok := vals[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("dossier %s/%s: unexpected confirmations output", owner.Hex(), id)
	}
	if !n.IsUint64() || n.Uint64() > math.MaxUint32 {
		return math.MaxUint32, nil
	}
	return uint32(n.Uint64()), nil
}

var (
	_ domain.DossierReader  = (*DossierRegistry)(nil)
	_ domain.GuardianLedger = (*DossierRegistry)(nil)
)
