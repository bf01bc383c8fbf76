package types

import "github.com/ethereum/go-ethereum/common"

// KDFParams records how the wrapping key of a KeyBundle was derived.
type KDFParams struct {
	Name       string `json:"name"`
	Iterations int    `json:"iterations"`
	KeyLen     int    `json:"key_len"`
}

// KeyBundle is the persisted, wrapped form of the device signing key.
// None of its fields carry plaintext key material.
type KeyBundle struct {
	Version    int            `json:"version"`
	KDF        KDFParams      `json:"kdf"`
	Salt       []byte         `json:"salt"`
	IV         []byte         `json:"iv"`
	Ciphertext []byte         `json:"ciphertext"`
	Tag        []byte         `json:"tag"`
	Address    common.Address `json:"address"`
}
