package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"

	"dossier/internal/condition"
	"dossier/internal/domain"
	"dossier/internal/threshold"
)

// ConditionGate evaluates a release condition by calling its view method,
// as a ritual participant does before serving a share.
type ConditionGate struct {
	caller  ethereum.ContractCaller
	chainID uint64
}

// NewConditionGate returns a gate for conditions on chainID.
func NewConditionGate(caller ethereum.ContractCaller, chainID uint64) *ConditionGate {
	return &ConditionGate{caller: caller, chainID: chainID}
}

// Allow reports whether cond currently permits release.
func (g *ConditionGate) Allow(ctx context.Context, cond domain.ReleaseCondition) (bool, error) {
	if cond.ChainID != g.chainID {
		return false, fmt.Errorf("condition for chain %d, gate serves %d", cond.ChainID, g.chainID)
	}
	to := cond.ContractAddress
	out, err := g.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: cond.Calldata()}, nil)
	if err != nil {
		return false, err
	}
	return condition.Satisfied(cond, out), nil
}

var _ threshold.ConditionGate = (*ConditionGate)(nil)
