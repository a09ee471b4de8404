package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pomodoro/internal/storage"
)

func setupTestDB(t *testing.T) (*SQLiteStore, string, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "test_pomodoro.db")
	store := NewSQLiteStore(dbPath)
	err := store.Init(context.Background())
	require.NoError(t, err, "Failed to initialize test database")

	cleanup := func() {
		assert.NoError(t, store.Close(), "Failed to close test database")
	}
	return store, dbPath, cleanup
}

func TestLoadMissingKey(t *testing.T) {
	store, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := store.Load(context.Background(), storage.KeyStats)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSaveAndLoad(t *testing.T) {
	store, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, storage.KeySettings, []byte(`{"workDuration":30}`)))
	require.NoError(t, store.Save(ctx, storage.KeyStats, []byte(`{"daily":{}}`)))

	got, err := store.Load(ctx, storage.KeySettings)
	require.NoError(t, err)
	assert.JSONEq(t, `{"workDuration":30}`, string(got))

	// Overwrite replaces the whole blob.
	require.NoError(t, store.Save(ctx, storage.KeySettings, []byte(`{"workDuration":45}`)))
	got, err = store.Load(ctx, storage.KeySettings)
	require.NoError(t, err)
	assert.JSONEq(t, `{"workDuration":45}`, string(got))

	got, err = store.Load(ctx, storage.KeyStats)
	require.NoError(t, err)
	assert.JSONEq(t, `{"daily":{}}`, string(got))
}

func TestDataSurvivesReopen(t *testing.T) {
	store, dbPath, cleanup := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, storage.KeyStats, []byte(`{"allTime":{"totalPomodoros":3}}`)))
	cleanup()

	reopened := NewSQLiteStore(dbPath)
	require.NoError(t, reopened.Init(ctx))
	defer reopened.Close()

	got, err := reopened.Load(ctx, storage.KeyStats)
	require.NoError(t, err)
	assert.JSONEq(t, `{"allTime":{"totalPomodoros":3}}`, string(got))
}

func TestCloseDB(t *testing.T) {
	store, _, cleanup := setupTestDB(t)
	cleanup()

	err := store.Save(context.Background(), storage.KeyStats, []byte(`{}`))
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}
