package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists one serialized blob per namespace.
type Store interface {
	Save(namespace string, blob []byte) error
	Load(namespace string) ([]byte, error)
}

// storeVersion is baked into the blob filename so a layout change never
// deserializes stale data.
const storeVersion = "v1"

// FileStore keeps each namespace as a JSON blob on disk.
type FileStore struct {
	dir string
}

// NewFileStore creates the backing directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("store directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(namespace string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.%s.json", namespace, storeVersion))
}

// Save writes the blob via a temp file rename so readers never observe a
// partial write.
func (s *FileStore) Save(namespace string, blob []byte) error {
	target := s.path(namespace)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("publish blob: %w", err)
	}
	return nil
}

// Load returns the stored blob, or nil when the namespace has never been
// saved.
func (s *FileStore) Load(namespace string) ([]byte, error) {
	blob, err := os.ReadFile(s.path(namespace))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return blob, nil
}
