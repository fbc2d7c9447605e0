// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/tqi/schema"
)

// Tool is an external analyzer adapter. Implementations must be stateless with respect
// to the project path so many (project, tool) units can run at once.
type Tool interface {
	// Name identifies the tool in diagnostics, cache keys and failure records.
	Name() string

	// Analyze runs the analyzer against a project and returns the path of its artifact.
	// Failures wrap schema.ErrToolExecution.
	Analyze(ctx context.Context, projectPath string) (string, error)

	// ParseAnalysis converts the artifact into diagnostics keyed by id.
	// Failures wrap schema.ErrUnparseableOutput.
	ParseAnalysis(artifactPath string) (schema.DiagnosticSet, error)
}

// Identifier is implemented by tools whose output depends on settings beyond the name.
// The identity becomes part of the tool cache key, so changing it invalidates cached runs.
type Identifier interface {
	Identity() string
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetToolCacheStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for tracking evaluation runs and node scores.
type HistoryStore interface {
	// BeginRun creates a new evaluation run and returns its unique ID
	BeginRun(modelName string, startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the evaluation run with completion data
	EndRun(runID int64, endTime time.Time, totalProjects int) error

	// RecordNodeScores stores every node score of one evaluated project
	RecordNodeScores(runID int64, result schema.ProjectResult) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns retrieves every evaluation run, oldest first
	GetAllRuns() ([]schema.EvaluationRunRecord, error)

	// GetAllNodeScores retrieves every recorded node score
	GetAllNodeScores() ([]schema.NodeScoreRecord, error)

	// Close closes the underlying connection
	Close() error
}
