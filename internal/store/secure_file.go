package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"dossier/internal/domain"
)

const secureFileExt = ".sec"

// FileSecureStorage keeps one record per key in a private directory.
//
// Files are written with mode 0600 inside a 0700 directory and replaced via
// temp file + rename, so readers never observe a partially written record.
type FileSecureStorage struct {
	dir string
	mu  sync.Mutex
}

// NewFileSecureStorage returns a FileSecureStorage rooted at dir, creating
// the directory if needed.
func NewFileSecureStorage(dir string) (*FileSecureStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileSecureStorage{dir: dir}, nil
}

// Load returns the record stored under key and whether it exists.
func (s *FileSecureStorage) Load(key string) ([]byte, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := loadFile(path)
	if err != nil {
		return nil, false, err
	}
	if b == nil {
		return nil, false, nil
	}
	return b, true, nil
}

// Save atomically replaces the record stored under key.
func (s *FileSecureStorage) Save(key string, value []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return replaceFile(path, value, 0o600)
}

// Delete removes the record stored under key. A missing record is not an error.
func (s *FileSecureStorage) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileSecureStorage) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return "", fmt.Errorf("store: invalid key %q", key)
	}
	return filepath.Join(s.dir, key+secureFileExt), nil
}

// Compile-time assertion that FileSecureStorage implements domain.SecureStorage.
var _ domain.SecureStorage = (*FileSecureStorage)(nil)
