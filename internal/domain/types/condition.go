package types

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// ReleaseCondition is the machine-checkable access condition bound to a
// capsule. The threshold network evaluates Calldata against ContractAddress
// on ChainID and only serves shares while the result equals
// ExpectedReturnValue.
type ReleaseCondition struct {
	ContractAddress     common.Address `cbor:"1,keyasint" json:"contract_address"`
	MethodSelector      [4]byte        `cbor:"2,keyasint" json:"method_selector"`
	EncodedArguments    []byte         `cbor:"3,keyasint" json:"encoded_arguments"`
	ExpectedReturnValue []byte         `cbor:"4,keyasint" json:"expected_return_value"`
	ChainID             uint64         `cbor:"5,keyasint" json:"chain_id"`
}

// Calldata returns the selector followed by the encoded arguments.
func (c ReleaseCondition) Calldata() []byte {
	out := make([]byte, 0, 4+len(c.EncodedArguments))
	out = append(out, c.MethodSelector[:]...)
	return append(out, c.EncodedArguments...)
}

// Bytes returns the canonical encoding used as associated data:
// chainID(8, big endian) | contract(20) | selector(4) | args | expected.
func (c ReleaseCondition) Bytes() []byte {
	out := make([]byte, 8, 8+common.AddressLength+4+len(c.EncodedArguments)+len(c.ExpectedReturnValue))
	binary.BigEndian.PutUint64(out, c.ChainID)
	out = append(out, c.ContractAddress.Bytes()...)
	out = append(out, c.MethodSelector[:]...)
	out = append(out, c.EncodedArguments...)
	return append(out, c.ExpectedReturnValue...)
}
