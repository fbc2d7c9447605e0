//go:build database

package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestWithMySQL runs calibration and evaluation against a MySQL cache and history.
func TestWithMySQL(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "tqi",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/tqi?parseTime=true", host, port.Port())
	runBackendFlow(t, "mysql", connStr)
}

// TestWithPostgres runs calibration and evaluation against a PostgreSQL cache and history.
func TestWithPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port.Port())
	runBackendFlow(t, "postgresql", connStr)
}

// runBackendFlow exercises both stores on one server backend.
func runBackendFlow(t *testing.T, backend, connStr string) {
	ws := newWorkspace(t)
	env := []string{
		"TQI_CACHE_BACKEND=" + backend,
		"TQI_CACHE_DB_CONNECT=" + connStr,
		"TQI_HISTORY_BACKEND=" + backend,
		"TQI_HISTORY_DB_CONNECT=" + connStr,
	}

	ws.run(t, env, "cache", "clear")
	ws.run(t, env, "history", "clear")

	out := ws.run(t, env, "history", "migrate")
	assert.Contains(t, out, "version 2")

	ws.run(t, env, "calibrate", "--description", ws.description, "--benchmark-repo", ws.corpus, "--results-dir", ws.results)

	// The second run is served from the tool cache.
	for range 2 {
		ws.run(t, env, "evaluate", filepath.Join(ws.corpus, "small"), "--model", ws.modelPath(), "--results-dir", ws.results)
	}

	out = ws.run(t, env, "cache", "status")
	assert.Contains(t, out, "Connected: true")
	assert.Contains(t, out, "Total Entries: 3")

	out = ws.run(t, env, "history", "status")
	assert.Contains(t, out, "Total Runs: 2")
	assert.Contains(t, out, "Total Projects Evaluated: 2")

	base := filepath.Join(ws.root, "export")
	out = ws.run(t, env, "history", "export", "--output-file", base)
	assert.Contains(t, out, "Exported 2 evaluation runs")
}
