package store

import (
	"errors"

	"github.com/dgraph-io/badger/v2"

	"dossier/internal/domain"
)

var (
	securePrefix  = []byte("secure/")
	capsulePrefix = []byte("capsule/")
)

// OpenBadger opens (or creates) a badger database in dir. An empty dir
// opens an in-memory database.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	return badger.Open(opts)
}

// BadgerSecureStorage keeps secure records in a badger database. Each Save
// is a single transaction, which gives the atomic replace SecureStorage
// requires.
type BadgerSecureStorage struct {
	db *badger.DB
}

// NewBadgerSecureStorage returns a BadgerSecureStorage over db.
func NewBadgerSecureStorage(db *badger.DB) *BadgerSecureStorage {
	return &BadgerSecureStorage{db: db}
}

func (s *BadgerSecureStorage) Load(key string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(prefixed(securePrefix, []byte(key)))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (s *BadgerSecureStorage) Save(key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(prefixed(securePrefix, []byte(key)), value)
	})
}

func (s *BadgerSecureStorage) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(prefixed(securePrefix, []byte(key)))
	})
}

func prefixed(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	return append(out, key...)
}

var _ domain.SecureStorage = (*BadgerSecureStorage)(nil)
