package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"dossier/internal/domain"
)

// CapsuleStore is a content-addressed capsule store backed by badger.
// Addresses are CIDv1 (raw codec, sha2-256).
type CapsuleStore struct {
	db *badger.DB
}

// NewCapsuleStore returns a CapsuleStore over db.
func NewCapsuleStore(db *badger.DB) *CapsuleStore {
	return &CapsuleStore{db: db}
}

// Put stores capsule and returns its content address. Storing the same
// bytes twice yields the same address.
func (s *CapsuleStore) Put(capsule []byte) (domain.CID, error) {
	c, err := capsuleCID(capsule)
	if err != nil {
		return "", err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(prefixed(capsulePrefix, c.Bytes()), capsule)
	})
	if err != nil {
		return "", fmt.Errorf("store capsule %s: %w", c, err)
	}
	return domain.CID(c.String()), nil
}

// Get returns the capsule stored under id after checking its content
// against the address.
func (s *CapsuleStore) Get(id domain.CID) ([]byte, error) {
	c, err := cid.Decode(id.String())
	if err != nil {
		return nil, fmt.Errorf("decode cid %q: %w", id, err)
	}
	var out []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(prefixed(capsulePrefix, c.Bytes()))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCapsuleNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	got, err := capsuleCID(out)
	if err != nil {
		return nil, err
	}
	if !got.Equals(c) {
		return nil, fmt.Errorf("capsule %s: content does not match address", id)
	}
	return out, nil
}

func capsuleCID(data []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

var _ domain.CapsuleStore = (*CapsuleStore)(nil)
