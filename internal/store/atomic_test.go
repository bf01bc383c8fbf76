package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceFileFlushesBeforeRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.sec")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	var synced []string
	orig := syncFile
	syncFile = func(f *os.File) error {
		// While the temp file is flushed the target still holds the old bundle.
		if f.Name() != dir {
			old, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "old", string(old))
		}
		synced = append(synced, f.Name())
		return orig(f)
	}
	t.Cleanup(func() { syncFile = orig })

	require.NoError(t, replaceFile(path, []byte("new"), 0o600))

	require.Len(t, synced, 2)
	assert.NotEqual(t, path, synced[0], "the temp file is flushed, not the target")
	assert.Equal(t, dir, synced[1], "the directory is flushed after the rename")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp file left behind")
}

func TestReplaceFileKeepsOldContentsWhenFlushFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.sec")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	orig := syncFile
	syncFile = func(*os.File) error { return os.ErrClosed }
	t.Cleanup(func() { syncFile = orig })

	require.Error(t, replaceFile(path, []byte("new"), 0o600))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
