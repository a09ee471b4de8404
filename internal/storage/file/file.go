// Package file stores each blob as a JSON file inside a data directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"pomodoro/internal/storage"
)

const (
	dataDirPerm  os.FileMode = 0700
	dataFilePerm os.FileMode = 0600
)

type FileStore struct {
	mu  sync.Mutex
	fs  afero.Fs
	dir string
}

// NewFileStore creates a store rooted at dir on fs. Pass afero.NewOsFs() for
// the real filesystem.
func NewFileStore(fs afero.Fs, dir string) *FileStore {
	return &FileStore{fs: fs, dir: dir}
}

func (s *FileStore) Init(ctx context.Context) error {
	if err := s.fs.MkdirAll(s.dir, dataDirPerm); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w: %v", s.dir, storage.ErrUnavailable, err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %v", key, storage.ErrUnavailable, err)
	}
	return data, nil
}

// Save writes to a temporary file and renames it over the target so a crash
// never leaves a half-written blob behind.
func (s *FileStore) Save(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(key)
	tmp := target + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, dataFilePerm); err != nil {
		return fmt.Errorf("write %s: %w: %v", key, storage.ErrUnavailable, err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace %s: %w: %v", key, storage.ErrUnavailable, err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
