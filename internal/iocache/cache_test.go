package iocache

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/tqi/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCacheStore_InvalidTableName(t *testing.T) {
	_, err := NewCacheStore("bad-name", schema.SQLiteBackend, ":memory:")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")
}

func TestNewCacheStore_UnsupportedBackend(t *testing.T) {
	_, err := NewCacheStore(toolCacheTable, "oracle", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported backend")
}

func TestCacheStore_NoneBackend(t *testing.T) {
	store, err := NewCacheStore(toolCacheTable, schema.NoneBackend, "")
	require.NoError(t, err)

	_, _, _, err = store.Get("k")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, store.Set("k", []byte("v"), 1, 1))

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Equal(t, "none", status.Backend)
	assert.NoError(t, store.Close())
}

func TestCacheStore_SQLite(t *testing.T) {
	store, err := NewCacheStore(toolCacheTable, schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, _, _, err = store.Get("missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, store.Set("lint:abc", []byte(`{"a":1}`), 1, 100))
	value, version, ts, err := store.Get("lint:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), value)
	assert.Equal(t, 1, version)
	assert.Equal(t, int64(100), ts)

	// Set replaces the previous entry.
	require.NoError(t, store.Set("lint:abc", []byte(`{"a":2}`), 2, 200))
	value, version, ts, err = store.Get("lint:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":2}`), value)
	assert.Equal(t, 2, version)
	assert.Equal(t, int64(200), ts)

	require.NoError(t, store.Set("tests:abc", []byte(`{}`), 1, 50))
	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 2, status.TotalEntries)
	assert.Equal(t, time.Unix(200, 0), status.LastEntryTime)
	assert.Equal(t, time.Unix(50, 0), status.OldestEntryTime)
	assert.Greater(t, status.TableSizeBytes, int64(0))
}

func TestCacheStore_SQLiteEmptyStatus(t *testing.T) {
	store, err := NewCacheStore(toolCacheTable, schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Zero(t, status.TotalEntries)
	assert.True(t, status.LastEntryTime.IsZero())
}

func TestCacheStore_SQLitePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := NewCacheStore(toolCacheTable, schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, store.Set("k", []byte("v"), 1, 1))
	require.NoError(t, store.Close())

	reopened, err := NewCacheStore(toolCacheTable, schema.SQLiteBackend, path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	value, _, _, err := reopened.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
}

func TestGetUpsertQuery(t *testing.T) {
	cases := map[schema.DatabaseBackend]string{
		schema.SQLiteBackend:     "INSERT OR REPLACE",
		schema.MySQLBackend:      "ON DUPLICATE KEY UPDATE",
		schema.PostgreSQLBackend: "ON CONFLICT (cache_key)",
	}
	for backend, want := range cases {
		cs := &CacheStoreImpl{tableName: toolCacheTable, backend: backend}
		assert.Contains(t, cs.getUpsertQuery(), want, backend)
	}
	pg := &CacheStoreImpl{tableName: toolCacheTable, backend: schema.PostgreSQLBackend}
	assert.Contains(t, pg.getUpsertQuery(), "$4")
}
