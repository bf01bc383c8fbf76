package condition

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"dossier/internal/domain"
)

// MethodSignature is the canonical signature of the condition view call.
const MethodSignature = "shouldStayEncrypted(address,uint256)"

const conditionABI = `[{
	"type": "function",
	"name": "shouldStayEncrypted",
	"stateMutability": "view",
	"inputs": [
		{"name": "owner", "type": "address"},
		{"name": "dossierId", "type": "uint256"}
	],
	"outputs": [{"name": "", "type": "bool"}]
}]`

var method abi.Method

func init() {
	parsed, err := abi.JSON(strings.NewReader(conditionABI))
	if err != nil {
		panic(fmt.Sprintf("condition abi: %v", err))
	}
	method = parsed.Methods["shouldStayEncrypted"]
}

// Selector returns the 4-byte method selector of MethodSignature.
func Selector() [4]byte {
	var sel [4]byte
	copy(sel[:], method.ID)
	return sel
}

// Encoder produces release conditions for one registry contract on one chain.
type Encoder struct {
	Contract common.Address
	ChainID  uint64
}

// NewEncoder returns an Encoder for contract on chainID.
func NewEncoder(contract common.Address, chainID uint64) Encoder {
	return Encoder{Contract: contract, ChainID: chainID}
}

// Encode returns the condition for (owner, dossierID). Encoding is
// deterministic: equal inputs give byte-identical conditions.
func (e Encoder) Encode(owner common.Address, dossierID *big.Int) (domain.ReleaseCondition, error) {
	switch {
	case e.Contract == (common.Address{}):
		return domain.ReleaseCondition{}, fmt.Errorf("%w: zero contract address", domain.ErrInvalidCondition)
	case e.ChainID == 0:
		return domain.ReleaseCondition{}, fmt.Errorf("%w: zero chain id", domain.ErrInvalidCondition)
	case owner == (common.Address{}):
		return domain.ReleaseCondition{}, fmt.Errorf("%w: zero owner address", domain.ErrInvalidCondition)
	case dossierID == nil:
		return domain.ReleaseCondition{}, fmt.Errorf("%w: missing dossier id", domain.ErrInvalidCondition)
	case dossierID.Sign() < 0 || dossierID.BitLen() > 256:
		return domain.ReleaseCondition{}, fmt.Errorf("%w: dossier id out of uint256 range", domain.ErrInvalidCondition)
	}

	args, err := method.Inputs.Pack(owner, new(big.Int).Set(dossierID))
	if err != nil {
		return domain.ReleaseCondition{}, fmt.Errorf("%w: %v", domain.ErrInvalidCondition, err)
	}
	expected, err := method.Outputs.Pack(false)
	if err != nil {
		return domain.ReleaseCondition{}, fmt.Errorf("%w: %v", domain.ErrInvalidCondition, err)
	}
	return domain.ReleaseCondition{
		ContractAddress:     e.Contract,
		MethodSelector:      Selector(),
		EncodedArguments:    args,
		ExpectedReturnValue: expected,
		ChainID:             e.ChainID,
	}, nil
}

// Verify re-derives the condition for (owner, dossierID) and checks cond
// against it byte for byte.
func (e Encoder) Verify(cond domain.ReleaseCondition, owner common.Address, dossierID *big.Int) error {
	want, err := e.Encode(owner, dossierID)
	if err != nil {
		return err
	}
	if !bytes.Equal(want.Bytes(), cond.Bytes()) {
		return fmt.Errorf("%w: condition does not match dossier", domain.ErrInvalidCondition)
	}
	return nil
}

// Decode returns the owner and dossier id carried by cond.
func Decode(cond domain.ReleaseCondition) (common.Address, *big.Int, error) {
	if cond.MethodSelector != Selector() {
		return common.Address{}, nil, fmt.Errorf("%w: unknown selector %x", domain.ErrInvalidCondition, cond.MethodSelector)
	}
	vals, err := method.Inputs.Unpack(cond.EncodedArguments)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: %v", domain.ErrInvalidCondition, err)
	}
	owner, ok1 := vals[0].(common.Address)
	id, ok2 := vals[1].(*big.Int)
	if !ok1 || !ok2 {
		return common.Address{}, nil, fmt.Errorf("%w: unexpected argument types", domain.ErrInvalidCondition)
	}
	return owner, id, nil
}

// Satisfied reports whether a raw return value from the view call permits
// release, that is, whether it equals cond.ExpectedReturnValue.
func Satisfied(cond domain.ReleaseCondition, result []byte) bool {
	return len(result) > 0 && bytes.Equal(result, cond.ExpectedReturnValue)
}
