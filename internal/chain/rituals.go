package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"dossier/internal/domain"
)

// RitualRegistry reads rituals from the threshold network's coordinator
// contract.
type RitualRegistry struct {
	c contract
}

// NewRitualRegistry returns a RitualRegistry for the coordinator at address.
func NewRitualRegistry(caller ethereum.ContractCaller, address common.Address) *RitualRegistry {
	return &RitualRegistry{c: contract{caller: caller, address: address, abi: CoordinatorABI}}
}

// PublicKey returns the DKG public key of ritual id.
func (r *RitualRegistry) PublicKey(ctx context.Context, id domain.RitualID) ([]byte, error) {
	vals, err := r.c.call(ctx, "getPublicKey", uint32(id))
	if err != nil {
		return nil, err
	}
	pk, ok := vals[0].([]byte)
	if !ok || len(pk) == 0 {
		return nil, fmt.Errorf("ritual %s: no public key", id)
	}
	return pk, nil
}

// Ritual returns ritual id with its public key, threshold and participants.
func (r *RitualRegistry) Ritual(ctx context.Context, id domain.RitualID) (domain.Ritual, error) {
	pk, err := r.PublicKey(ctx, id)
	if err != nil {
		return domain.Ritual{}, err
	}
	vals, err := r.c.call(ctx, "getRitual", uint32(id))
	if err != nil {
		return domain.Ritual{}, err
	}
	threshold, ok0 := vals[0].(uint16)
	providers, ok1 := vals[1].([]common.Address)
	requestKeys, ok2 := vals[2].([][]byte)
	publicShares, ok3 := vals[3].([][]byte)
	if !ok0 || !ok1 || !ok2 || !ok3 {
		return domain.Ritual{}, fmt.Errorf("ritual %s: unexpected getRitual output", id)
	}
	if len(requestKeys) != len(providers) || len(publicShares) != len(providers) {
		return domain.Ritual{}, fmt.Errorf("ritual %s: participant arrays differ in length", id)
	}

	out := domain.Ritual{ID: id, Threshold: int(threshold), PublicKey: pk}
	for i, provider := range providers {
		var rk domain.X25519Public
		if len(requestKeys[i]) != len(rk) {
			return domain.Ritual{}, fmt.Errorf("ritual %s: participant %d has a %d-byte request key", id, i, len(requestKeys[i]))
		}
		copy(rk[:], requestKeys[i])
		out.Participants = append(out.Participants, domain.Participant{
			Index:       i,
			Provider:    provider,
			RequestKey:  rk,
			PublicShare: publicShares[i],
		})
	}
	return out, nil
}

var _ domain.RitualSource = (*RitualRegistry)(nil)
