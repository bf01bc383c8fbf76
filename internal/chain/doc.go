// Package chain reads ritual, dossier and guardian state from contracts
// through a go-ethereum ContractCaller, and evaluates release conditions the
// way a ritual participant does.
package chain
