package chain_test

import (
	"context"
	"errors"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dossier/internal/chain"
	"dossier/internal/condition"
	"dossier/internal/domain"
	"dossier/internal/threshold"
)

var (
	coordinatorAddr = common.HexToAddress("0x00000000000000000000000000000000000c0de1")
	registryAddr    = common.HexToAddress("0x00000000000000000000000000000000000c0de2")
	owner           = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

// fakeChain answers view calls from Go values, packed with the real ABI.
type fakeChain struct {
	t       *testing.T
	abis    map[common.Address]abi.ABI
	answers map[string][]any
	raw     map[common.Address][]byte
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if raw, ok := f.raw[*msg.To]; ok {
		return raw, nil
	}
	parsed, ok := f.abis[*msg.To]
	if !ok {
		return nil, errors.New("no contract at address")
	}
	m, err := parsed.MethodById(msg.Data[:4])
	require.NoError(f.t, err)
	vals, ok := f.answers[m.Name]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return m.Outputs.Pack(vals...)
}

func newFake(t *testing.T) *fakeChain {
	return &fakeChain{
		t: t,
		abis: map[common.Address]abi.ABI{
			coordinatorAddr: chain.CoordinatorABI,
			registryAddr:    chain.RegistryABI,
		},
		answers: map[string][]any{},
		raw:     map[common.Address][]byte{},
	}
}

func TestRitualRegistry(t *testing.T) {
	sim, err := threshold.Simulate(3, 2, 3, nil, nil, zerolog.Nop())
	require.NoError(t, err)

	fake := newFake(t)
	var providers []common.Address
	var requestKeys, publicShares [][]byte
	for _, p := range sim.Ritual.Participants {
		providers = append(providers, p.Provider)
		requestKeys = append(requestKeys, p.RequestKey.Slice())
		publicShares = append(publicShares, p.PublicShare)
	}
	fake.answers["getPublicKey"] = []any{sim.Ritual.PublicKey}
	fake.answers["getRitual"] = []any{uint16(2), providers, requestKeys, publicShares}

	reg := chain.NewRitualRegistry(fake, coordinatorAddr)
	pk, err := reg.PublicKey(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, sim.Ritual.PublicKey, pk)

	ritual, err := reg.Ritual(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, sim.Ritual, ritual)

	fake.answers["getRitual"] = []any{uint16(2), providers, requestKeys[:1], publicShares}
	_, err = reg.Ritual(context.Background(), 3)
	assert.Error(t, err)
}

func TestRitualRegistry_Unavailable(t *testing.T) {
	_, err := chain.NewRitualRegistry(newFake(t), coordinatorAddr).PublicKey(context.Background(), 1)
	assert.Error(t, err)
}

func TestDossierRegistry(t *testing.T) {
	fake := newFake(t)
	checkIn := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	fake.answers["getDossier"] = []any{uint64(checkIn.Unix()), uint64(3600), uint32(2), uint32(3)}
	fake.answers["getGuardianConfirmations"] = []any{big.NewInt(1)}

	reg := chain.NewDossierRegistry(fake, registryAddr)
	state, err := reg.DossierState(context.Background(), owner, big.NewInt(9))
	require.NoError(t, err)
	assert.Equal(t, domain.DossierState{
		LastCheckIn:           checkIn,
		CheckInInterval:       time.Hour,
		GuardianThreshold:     2,
		GuardianConfirmations: 1,
		GuardianTotal:         3,
	}, state)

	fake.answers["getGuardianConfirmations"] = []any{new(big.Int).Lsh(big.NewInt(1), 100)}
	n, err := reg.Confirmations(context.Background(), owner, big.NewInt(9))
	require.NoError(t, err)
	assert.Equal(t, uint32(1<<32-1), n)

	fake.answers["getDossier"] = []any{uint64(0), uint64(3600), uint32(4), uint32(3)}
	_, err = reg.DossierState(context.Background(), owner, big.NewInt(9))
	assert.ErrorIs(t, err, domain.ErrInvalidGuardianThreshold)
}

func TestDossierRegistry_CheckInOutOfRange(t *testing.T) {
	fake := newFake(t)
	reg := chain.NewDossierRegistry(fake, registryAddr)

	for _, ts := range []uint64{math.MaxUint64, math.MaxInt64 + 1, 1<<40 + 1} {
		fake.answers["getDossier"] = []any{ts, uint64(3600), uint32(0), uint32(0)}
		_, err := reg.DossierState(context.Background(), owner, big.NewInt(9))
		assert.Error(t, err, "last check-in %d", ts)
	}

	fake.answers["getDossier"] = []any{uint64(1 << 40), uint64(3600), uint32(0), uint32(0)}
	state, err := reg.DossierState(context.Background(), owner, big.NewInt(9))
	require.NoError(t, err)
	assert.True(t, state.ExpiresAt().After(state.LastCheckIn))
	assert.Positive(t, state.LastCheckIn.Unix())
}

func TestConditionGate(t *testing.T) {
	cond, err := condition.NewEncoder(registryAddr, 31337).Encode(owner, big.NewInt(1))
	require.NoError(t, err)

	fake := newFake(t)
	gate := chain.NewConditionGate(fake, 31337)

	fake.raw[registryAddr] = make([]byte, 32)
	ok, err := gate.Allow(context.Background(), cond)
	require.NoError(t, err)
	assert.True(t, ok)

	stay := make([]byte, 32)
	stay[31] = 1
	fake.raw[registryAddr] = stay
	ok, err = gate.Allow(context.Background(), cond)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = chain.NewConditionGate(fake, 1).Allow(context.Background(), cond)
	assert.Error(t, err)
}
