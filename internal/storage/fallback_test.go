package storage_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pomodoro/internal/storage"
	"pomodoro/internal/storage/memory"
)

// flakyStore wraps a memory store and fails every call once broken is set.
type flakyStore struct {
	*memory.Store
	broken bool
	saves  int
}

var errDiskFull = errors.New("disk full")

func (s *flakyStore) Load(ctx context.Context, key string) ([]byte, error) {
	if s.broken {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, errDiskFull)
	}
	return s.Store.Load(ctx, key)
}

func (s *flakyStore) Save(ctx context.Context, key string, data []byte) error {
	if s.broken {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, errDiskFull)
	}
	s.saves++
	return s.Store.Save(ctx, key, data)
}

func TestFallbackPassesThroughWhileHealthy(t *testing.T) {
	primary := &flakyStore{Store: memory.NewStore()}
	fb := storage.NewFallback(primary, memory.NewStore())
	ctx := context.Background()
	require.NoError(t, fb.Init(ctx))

	_, err := fb.Load(ctx, storage.KeyStats)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, fb.Save(ctx, storage.KeyStats, []byte(`{"a":1}`)))
	assert.Equal(t, 1, primary.saves)
	assert.False(t, fb.Degraded())

	got, err := primary.Store.Load(ctx, storage.KeyStats)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}

func TestFallbackDegradesOnSaveFailure(t *testing.T) {
	primary := &flakyStore{Store: memory.NewStore()}
	fb := storage.NewFallback(primary, memory.NewStore())
	ctx := context.Background()
	require.NoError(t, fb.Init(ctx))

	var degradedWith error
	fb.OnDegrade(func(err error) { degradedWith = err })

	require.NoError(t, primary.Store.Save(ctx, storage.KeySettings, []byte(`{"dailyGoal":4}`)))
	_, err := fb.Load(ctx, storage.KeySettings)
	require.NoError(t, err)

	primary.broken = true
	require.NoError(t, fb.Save(ctx, storage.KeyStats, []byte(`{"b":2}`)), "failures are absorbed")
	assert.True(t, fb.Degraded())
	assert.ErrorIs(t, degradedWith, storage.ErrUnavailable)

	// Both the blob saved after the failure and the one read before it are still served.
	got, err := fb.Load(ctx, storage.KeyStats)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(got))
	got, err = fb.Load(ctx, storage.KeySettings)
	require.NoError(t, err)
	assert.Equal(t, `{"dailyGoal":4}`, string(got))

	// The primary is not retried once abandoned.
	primary.broken = false
	require.NoError(t, fb.Save(ctx, storage.KeyStats, []byte(`{"c":3}`)))
	assert.Equal(t, 0, primary.saves)
}

type brokenInit struct{ *memory.Store }

func (brokenInit) Init(ctx context.Context) error {
	return fmt.Errorf("%w: read-only filesystem", storage.ErrUnavailable)
}

func TestFallbackDegradesOnInitFailure(t *testing.T) {
	fb := storage.NewFallback(brokenInit{memory.NewStore()}, memory.NewStore())
	ctx := context.Background()

	require.NoError(t, fb.Init(ctx))
	assert.True(t, fb.Degraded())

	require.NoError(t, fb.Save(ctx, storage.KeyStats, []byte(`{}`)))
	_, err := fb.Load(ctx, storage.KeySettings)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, fb.Close())
}
