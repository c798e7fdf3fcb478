package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store is the persistence boundary for credential records. A missing
// record is reported via the bool return, not as an error, and deleting a
// missing record is a no-op.
type Store interface {
	Get(name string) ([]byte, bool, error)
	Set(name string, value []byte) error
	Delete(name string) error
}

// FileStore keeps one file per record inside Dir. The directory is created
// on first write with 0700 permissions; record files are written 0600.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) Get(name string) ([]byte, bool, error) {
	content, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return content, true, nil
}

func (s *FileStore) Set(name string, value []byte) error {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	path := filepath.Join(s.Dir, name)
	// Write-then-rename so a crash mid-write never leaves a truncated
	// record behind.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o600); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to commit record: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(name string) error {
	err := os.Remove(filepath.Join(s.Dir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
