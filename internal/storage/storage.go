package storage

import (
	"context"
	"errors"
)

// Keys of the two persisted blobs.
const (
	KeySettings = "pomodoroSettings"
	KeyStats    = "pomodoroStats"
)

var (
	// ErrNotFound is returned by Load when nothing was saved under the key yet.
	ErrNotFound = errors.New("key not found")
	// ErrUnavailable wraps backend failures (disk full, permissions, locked database).
	ErrUnavailable = errors.New("persistence unavailable")
)

// Store is a durable key/value store for JSON blobs.
type Store interface {
	Init(ctx context.Context) error
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}
