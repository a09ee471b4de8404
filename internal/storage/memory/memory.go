package memory

import (
	"context"
	"fmt"
	"sync"

	"pomodoro/internal/storage"
)

// Store keeps blobs in process memory. Contents are lost on exit.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewStore() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

func (s *Store) Init(ctx context.Context) error {
	return nil
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.blobs[key]
	if !exists {
		return nil, fmt.Errorf("load %s: %w", key, storage.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (s *Store) Close() error {
	return nil
}
