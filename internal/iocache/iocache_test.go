package iocache

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/tqi/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStoreManager_Empty(t *testing.T) {
	mgr := &CacheStoreManager{}
	assert.Nil(t, mgr.GetToolCacheStore())
	assert.Nil(t, mgr.GetHistoryStore())
}

func TestValidateTableName(t *testing.T) {
	assert.NoError(t, validateTableName("tqi_tool_cache"))
	assert.NoError(t, validateTableName("_t1"))
	assert.Error(t, validateTableName(""))
	assert.Error(t, validateTableName("1table"))
	assert.Error(t, validateTableName("drop table;--"))
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "`t`", quoteTableName("t", schema.MySQLBackend))
	assert.Equal(t, `"t"`, quoteTableName("t", schema.PostgreSQLBackend))
	assert.Equal(t, `"t"`, quoteTableName("t", schema.SQLiteBackend))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"$1", "$2", "$3"}, placeholders(schema.PostgreSQLBackend, 3))
	assert.Equal(t, []string{"?", "?"}, placeholders(schema.MySQLBackend, 2))
	assert.Equal(t, []string{"?"}, placeholders(schema.SQLiteBackend, 1))
}

func TestDriverName(t *testing.T) {
	for backend, want := range map[schema.DatabaseBackend]string{
		schema.SQLiteBackend:     "sqlite",
		schema.MySQLBackend:      "mysql",
		schema.PostgreSQLBackend: "pgx",
	} {
		got, err := driverName(backend)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := driverName("oracle")
	assert.Error(t, err)
}

func TestTimeScanner(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 500, time.UTC)

	t.Run("sqlite text", func(t *testing.T) {
		s := timeScanner{backend: schema.SQLiteBackend}
		s.text = sql.NullString{String: formatTime(ts, schema.SQLiteBackend).(string), Valid: true}
		got, err := s.value()
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, ts.Equal(*got))
	})

	t.Run("sqlite null", func(t *testing.T) {
		s := timeScanner{backend: schema.SQLiteBackend}
		got, err := s.value()
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("sqlite garbage", func(t *testing.T) {
		s := timeScanner{backend: schema.SQLiteBackend, text: sql.NullString{String: "yesterday", Valid: true}}
		_, err := s.value()
		assert.Error(t, err)
	})

	t.Run("native", func(t *testing.T) {
		s := timeScanner{backend: schema.PostgreSQLBackend, native: sql.NullTime{Time: ts, Valid: true}}
		_, isNative := s.dest().(*sql.NullTime)
		assert.True(t, isNative)
		got, err := s.value()
		require.NoError(t, err)
		assert.Equal(t, ts, *got)
	})
}

func TestClearStores(t *testing.T) {
	t.Run("sqlite removes file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.db")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		require.NoError(t, ClearToolCache(schema.SQLiteBackend, path, ""))
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("sqlite missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.db")
		assert.NoError(t, ClearHistory(schema.SQLiteBackend, path, ""))
	})

	t.Run("sqlite empty path", func(t *testing.T) {
		assert.Error(t, ClearToolCache(schema.SQLiteBackend, "", ""))
	})

	t.Run("none", func(t *testing.T) {
		assert.NoError(t, ClearHistory(schema.NoneBackend, "", ""))
	})

	t.Run("unsupported", func(t *testing.T) {
		err := ClearToolCache("oracle", "", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported backend")
	})
}

func TestPrintCacheStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintCacheStatus(&buf, schema.CacheStatus{Backend: "none"})
	assert.Equal(t, "Cache Backend: none\nConnected: false\n", buf.String())

	buf.Reset()
	now := time.Now()
	PrintCacheStatus(&buf, schema.CacheStatus{
		Backend:         "sqlite",
		Connected:       true,
		TotalEntries:    3,
		LastEntryTime:   now,
		OldestEntryTime: now.Add(-time.Hour),
		TableSizeBytes:  4096,
	})
	out := buf.String()
	assert.Contains(t, out, "Total Entries: 3")
	assert.Contains(t, out, "Last Entry: ")
	assert.Contains(t, out, "Table Size: 4096 bytes")
}

func TestPrintHistoryStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintHistoryStatus(&buf, schema.HistoryStatus{
		Backend:                "sqlite",
		Connected:              true,
		TotalRuns:              2,
		LastRunID:              2,
		TotalProjectsEvaluated: 5,
		TableSizes:             map[string]int64{nodeScoresTable: 40, evaluationRunsTable: 2},
	})
	out := buf.String()
	assert.Contains(t, out, "Total Runs: 2")
	assert.Contains(t, out, "Last Run ID: 2")
	assert.Contains(t, out, "Total Projects Evaluated: 5")

	// Tables print in name order.
	runsAt := bytes.Index(buf.Bytes(), []byte(evaluationRunsTable))
	scoresAt := bytes.Index(buf.Bytes(), []byte(nodeScoresTable))
	assert.Less(t, runsAt, scoresAt)
}
