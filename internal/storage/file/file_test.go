package file

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pomodoro/internal/storage"
)

func TestFileStoreRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "/data/pomodoro")
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))

	_, err := store.Load(ctx, storage.KeySettings)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Save(ctx, storage.KeySettings, []byte(`{"dailyGoal":6}`)))
	got, err := store.Load(ctx, storage.KeySettings)
	require.NoError(t, err)
	assert.JSONEq(t, `{"dailyGoal":6}`, string(got))

	exists, err := afero.Exists(fs, "/data/pomodoro/pomodoroSettings.json")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = afero.Exists(fs, "/data/pomodoro/pomodoroSettings.json.tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileStoreReadOnlyFs(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/data", 0700))
	store := NewFileStore(afero.NewReadOnlyFs(base), "/data")
	ctx := context.Background()

	err := store.Save(ctx, storage.KeyStats, []byte(`{}`))
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}
