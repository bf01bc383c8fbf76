package store_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dossier/internal/domain"
	"dossier/internal/store"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := store.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCapsuleStore_PutGet(t *testing.T) {
	s := store.NewCapsuleStore(openDB(t))

	id, err := s.Put([]byte("sealed capsule"))
	require.NoError(t, err)

	c, err := cid.Decode(id.String())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.Version())
	assert.Equal(t, uint64(cid.Raw), c.Type())

	again, err := s.Put([]byte("sealed capsule"))
	require.NoError(t, err)
	assert.Equal(t, id, again)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("sealed capsule"), got)
}

func TestCapsuleStore_Missing(t *testing.T) {
	s := store.NewCapsuleStore(openDB(t))
	other := store.NewCapsuleStore(openDB(t))

	id, err := other.Put([]byte("elsewhere"))
	require.NoError(t, err)

	_, err = s.Get(id)
	assert.True(t, errors.Is(err, domain.ErrCapsuleNotFound))

	_, err = s.Get("not-a-cid")
	assert.Error(t, err)
}

func TestDossierFileStore_SaveLoadList(t *testing.T) {
	s := store.NewDossierFileStore(t.TempDir())
	owner := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	stranger := common.HexToAddress("0x00000000000000000000000000000000000000b2")

	for _, id := range []int64{3, 1, 2} {
		require.NoError(t, s.SaveDossier(domain.Dossier{
			Owner:    owner,
			ID:       big.NewInt(id),
			RitualID: 7,
			Capsule:  domain.CID("cid-" + big.NewInt(id).String()),
		}))
	}
	require.NoError(t, s.SaveDossier(domain.Dossier{Owner: stranger, ID: big.NewInt(1)}))

	d, ok, err := s.LoadDossier(owner, big.NewInt(2))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.CID("cid-2"), d.Capsule)
	assert.Equal(t, domain.RitualID(7), d.RitualID)

	list, err := s.ListDossiers(owner)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, d := range list {
		assert.Equal(t, int64(i+1), d.ID.Int64())
	}

	_, ok, err = s.LoadDossier(owner, big.NewInt(9))
	require.NoError(t, err)
	assert.False(t, ok)
}
