package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const coordinatorABI = `[
	{"type":"function","name":"getPublicKey","stateMutability":"view",
	 "inputs":[{"name":"ritualId","type":"uint32"}],
	 "outputs":[{"name":"","type":"bytes"}]},
	{"type":"function","name":"getRitual","stateMutability":"view",
	 "inputs":[{"name":"ritualId","type":"uint32"}],
	 "outputs":[
		{"name":"threshold","type":"uint16"},
		{"name":"providers","type":"address[]"},
		{"name":"requestKeys","type":"bytes[]"},
		{"name":"publicShares","type":"bytes[]"}]}
]`

const registryABI = `[
	{"type":"function","name":"getDossier","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"dossierId","type":"uint256"}],
	 "outputs":[
		{"name":"lastCheckIn","type":"uint64"},
		{"name":"interval","type":"uint64"},
		{"name":"guardianThreshold","type":"uint32"},
		{"name":"guardianTotal","type":"uint32"}]},
	{"type":"function","name":"getGuardianConfirmations","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"dossierId","type":"uint256"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

// CoordinatorABI and RegistryABI are the parsed contract interfaces.
var (
	CoordinatorABI = mustParse(coordinatorABI)
	RegistryABI    = mustParse(registryABI)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}
