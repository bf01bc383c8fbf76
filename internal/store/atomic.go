package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// syncFile flushes f to stable storage. Tests replace it to observe ordering.
var syncFile = (*os.File).Sync

// loadFile returns the contents of path, or nil if it does not exist.
func loadFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return b, err
}

// loadJSON decodes path into out. A missing file leaves out untouched.
func loadJSON(path string, out any) error {
	b, err := loadFile(path)
	if err != nil || b == nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// storeJSON encodes v and replaces path with it atomically.
func storeJSON(path string, v any, mode os.FileMode) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return replaceFile(path, b, mode)
}

// replaceFile writes b next to path, flushes it, and renames it over path.
// Readers see either the old or the new contents, also across a crash: the
// rename is only issued once the new contents are durable, and the directory
// is flushed after it so the rename itself survives.
func replaceFile(path string, b []byte, mode os.FileMode) (err error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if err = f.Chmod(mode); err != nil {
		return err
	}
	if _, err = f.Write(b); err != nil {
		return err
	}
	if err = syncFile(f); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp, path); err != nil {
		return err
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return syncFile(d)
}
