package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/internal/iocache"
	"github.com/huangsam/tqi/schema"
	"github.com/spf13/cobra"
)

// cacheSetup opens only the tool cache store.
func cacheSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := storeSettings("cache-backend", "cache-db-connect", schema.SQLiteBackend)
	if err != nil {
		return err
	}
	if err := iocache.InitStores(backend, connStr, "", ""); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr
	return nil
}

// cacheCmd focused on tool cache management.
//
// Cache subcommands skip sharedSetup, so no project path or model is needed.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the analyzer output cache",
	Long: `Manage the cache of analyzer diagnostics that speeds up repeated runs.

Diagnostics are cached per (tool, project fingerprint). A project is re-analyzed when any
source file changes, when the cache format changes, or when an entry is older than a week.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status - Show cache statistics and connection info
  clear  - Remove all cached data`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached analyzer output",
	Long: `Delete all cached analyzer output from the configured backend.

Use this after upgrading an analyzer or changing its arguments.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table`,
	PreRunE: cacheSetup,
	Run: func(_ *cobra.Command, _ []string) {
		iocache.CloseStores()
		path := cfg.CacheDBConnect
		if path == "" {
			path = contract.GetCacheDBFilePath()
		}
		if err := iocache.ClearToolCache(cfg.CacheBackend, path, cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display cache statistics and connection details",
	PreRunE: cacheSetup,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetToolCacheStore()
		if store == nil {
			contract.LogFatal("Failed to get cache status", errors.New("cache store is not initialized"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		iocache.PrintCacheStatus(os.Stdout, status)
	},
}
