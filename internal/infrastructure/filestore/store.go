package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store writes uploaded attachment bytes to a directory on disk. Stored names
// are random so user-supplied file names never touch the filesystem.
type Store struct {
	dir string
}

// New ensures the target directory exists and returns a Store for it.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("filestore: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Save writes data under a random name keeping the original extension and
// returns the stored path relative to the store directory.
func (s *Store) Save(originalName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

// Remove deletes a previously stored file. Missing files are not an error so
// rollback paths stay idempotent.
func (s *Store) Remove(storedName string) error {
	if storedName == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.Base(storedName)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the absolute path of a stored file.
func (s *Store) Path(storedName string) string {
	return filepath.Join(s.dir, filepath.Base(storedName))
}
