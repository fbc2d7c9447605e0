package analyze

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/schema"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// maxCacheAge is how long a cached tool result stays valid.
const maxCacheAge = 7 * 24 * time.Hour

// runFunc runs one (project, tool) unit without the cache.
type runFunc func(ctx context.Context, tool contract.Tool, project string) (schema.DiagnosticSet, error)

// cachedRun returns cached diagnostics for the unit or runs it and stores the result.
// Failed runs are never cached.
func cachedRun(ctx context.Context, store contract.CacheStore, tool contract.Tool, project, fingerprint string, run runFunc) (schema.DiagnosticSet, error) {
	key := generateCacheKey(toolIdentity(tool), project, fingerprint)

	// Check for cache hit
	if result := checkCacheHit(store, key); result != nil {
		return result, nil
	}

	// Cache miss: compute and store
	return computeAndStore(ctx, store, tool, project, key, run)
}

// checkCacheHit attempts to retrieve and validate a cached result
func checkCacheHit(store contract.CacheStore, key string) schema.DiagnosticSet {
	data, version, ts, err := store.Get(key)
	if err != nil {
		return nil // Cache miss
	}

	// Validate version and staleness
	if version != currentCacheVersion || time.Since(time.Unix(ts, 0)) > maxCacheAge {
		return nil
	}
	var result schema.DiagnosticSet
	if err := json.Unmarshal(data, &result); err != nil || result == nil {
		return nil
	}
	return result // Cache hit
}

// computeAndStore runs the unit and stores its diagnostics in the cache
func computeAndStore(ctx context.Context, store contract.CacheStore, tool contract.Tool, project, key string, run runFunc) (schema.DiagnosticSet, error) {
	result, err := run(ctx, tool, project)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		_ = store.Set(key, data, currentCacheVersion, time.Now().Unix())
	}
	return result, nil
}

// toolIdentity is the tool name, extended with the tool's own identity when it has one.
func toolIdentity(tool contract.Tool) string {
	if id, ok := tool.(contract.Identifier); ok {
		return tool.Name() + "\x00" + id.Identity()
	}
	return tool.Name()
}

// generateCacheKey creates a unique key for a tool run against a project state
func generateCacheKey(tool, project, fingerprint string) string {
	key := fmt.Sprintf("%s:%s:%s", tool, project, fingerprint)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
}

// projectFingerprint hashes the path, size and modification time of every file so the
// cache key changes whenever the project does. It returns "" when the walk fails,
// which disables caching for the project.
func projectFingerprint(project string) string {
	h := sha256.New()
	err := filepath.WalkDir(project, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(project, path)
		_, _ = fmt.Fprintf(h, "%s|%d|%d\n", filepath.ToSlash(rel), info.Size(), info.ModTime().UnixNano())
		return nil
	})
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
