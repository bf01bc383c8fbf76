package crypto

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// GenerateSigningKey returns a fresh secp256k1 signing key.
func GenerateSigningKey() (*ecdsa.PrivateKey, error) {
	return ethcrypto.GenerateKey()
}

// AddressOf returns the account address derived from key.
func AddressOf(key *ecdsa.PrivateKey) common.Address {
	return ethcrypto.PubkeyToAddress(key.PublicKey)
}

// MarshalSigningKey returns the 32-byte scalar encoding of key.
func MarshalSigningKey(key *ecdsa.PrivateKey) []byte {
	return ethcrypto.FromECDSA(key)
}

// ParseSigningKey decodes a 32-byte scalar into a signing key.
func ParseSigningKey(b []byte) (*ecdsa.PrivateKey, error) {
	return ethcrypto.ToECDSA(b)
}

// WipeSigningKey clears the private scalar of key.
func WipeSigningKey(key *ecdsa.PrivateKey) {
	if key == nil || key.D == nil {
		return
	}
	key.D.SetInt64(0)
}
