package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dossier/internal/domain"
	"dossier/internal/store"
)

func secureStorages(t *testing.T) map[string]domain.SecureStorage {
	t.Helper()

	files, err := store.NewFileSecureStorage(filepath.Join(t.TempDir(), "secure"))
	require.NoError(t, err)

	db, err := store.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return map[string]domain.SecureStorage{
		"file":   files,
		"badger": store.NewBadgerSecureStorage(db),
		"memory": store.NewMemorySecureStorage(),
	}
}

func TestSecureStorage_SaveLoadDelete(t *testing.T) {
	for name, s := range secureStorages(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Load("bundle")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Save("bundle", []byte("v1")))
			require.NoError(t, s.Save("bundle", []byte("v2")))

			got, ok, err := s.Load("bundle")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("v2"), got)

			require.NoError(t, s.Delete("bundle"))
			require.NoError(t, s.Delete("bundle"))

			_, ok, err = s.Load("bundle")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestFileSecureStorage_PrivateMode(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "secure")
	s, err := store.NewFileSecureStorage(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save("dossier.keybundle.v1", []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")

	info, err := entries[0].Info()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileSecureStorage_RejectsPathKeys(t *testing.T) {
	s, err := store.NewFileSecureStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "..", "../escape", "a/b"} {
		assert.Error(t, s.Save(key, []byte("x")), "key %q", key)
	}
}
