package interfaces

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	domaintypes "dossier/internal/domain/types"
)

// SecureStorage is device-secure key/value storage for a single record per
// key. Save must replace the previous value atomically.
type SecureStorage interface {
	Load(key string) ([]byte, bool, error)
	Save(key string, value []byte) error
	Delete(key string) error
}

// CapsuleStore is content-addressed storage for capsule bytes.
type CapsuleStore interface {
	Put(capsule []byte) (domaintypes.CID, error)
	Get(id domaintypes.CID) ([]byte, error)
}

// DossierIndex is the local record of dossiers this device has committed.
type DossierIndex interface {
	SaveDossier(d domaintypes.Dossier) error
	LoadDossier(owner common.Address, id *big.Int) (domaintypes.Dossier, bool, error)
	ListDossiers(owner common.Address) ([]domaintypes.Dossier, error)
}
