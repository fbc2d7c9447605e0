package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/internal/iocache"
	"github.com/huangsam/tqi/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCacheStore for testing (alias for MockCacheStore)
type MockCacheStore = iocache.MockCacheStore

// fakeTool reports one diagnostic per project whose count is the length of the project's directory name.
type fakeTool struct {
	name    string
	diagID  string
	failFor string
	delay   time.Duration
	calls   atomic.Int32
}

var _ contract.Tool = &fakeTool{}

func (f *fakeTool) Name() string { return f.name }

func (f *fakeTool) Analyze(ctx context.Context, projectPath string) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", errors.Join(schema.ErrToolExecution, ctx.Err())
		}
	}
	if projectPath == f.failFor {
		return "", schema.ErrToolExecution
	}
	return filepath.Join(projectPath, "artifact.json"), nil
}

func (f *fakeTool) ParseAnalysis(artifactPath string) (schema.DiagnosticSet, error) {
	d := schema.NewDiagnostic(f.diagID, f.name)
	for range len(filepath.Base(filepath.Dir(artifactPath))) {
		d.AddFinding(schema.NewFinding(artifactPath, "warning", 1, 1, 0))
	}
	return schema.DiagnosticSet{f.diagID: d}, nil
}

// configuredTool reports a fixed number of findings, set by its configuration.
type configuredTool struct {
	fakeTool
	findings int
}

var _ contract.Identifier = &configuredTool{}

func (c *configuredTool) Identity() string { return fmt.Sprintf("findings=%d", c.findings) }

func (c *configuredTool) ParseAnalysis(artifactPath string) (schema.DiagnosticSet, error) {
	d := schema.NewDiagnostic(c.diagID, c.name)
	for range c.findings {
		d.AddFinding(schema.NewFinding(artifactPath, "warning", 1, 1, 0))
	}
	return schema.DiagnosticSet{c.diagID: d}, nil
}

func projectDirs(t *testing.T, names ...string) []string {
	t.Helper()
	root := t.TempDir()
	out := make([]string, 0, len(names))
	for _, n := range names {
		dir := filepath.Join(root, n)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
		out = append(out, dir)
	}
	return out
}

func TestCollect(t *testing.T) {
	projects := projectDirs(t, "a", "bb", "ccc")
	lint := &fakeTool{name: "lint", diagID: "L1"}
	vet := &fakeTool{name: "vet", diagID: "V1"}

	results, err := NewRunner([]contract.Tool{lint, vet}, 2, time.Second).Collect(context.Background(), projects)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, res := range results {
		assert.Equal(t, projects[i], res.Path, "results keep project order")
		assert.Equal(t, 2, res.Succeeded)
		assert.Empty(t, res.Failures)
		assert.NoError(t, res.Err())
		assert.False(t, res.AllFailed())
		assert.Equal(t, []string{"L1", "V1"}, res.Diagnostics.IDs())
	}
	assert.Equal(t, 3.0, results[2].Diagnostics["L1"].Value())
	assert.Equal(t, int32(3), lint.calls.Load())
	assert.Equal(t, int32(3), vet.calls.Load())
}

func TestCollect_FailureIsScopedToUnit(t *testing.T) {
	projects := projectDirs(t, "good", "bad")
	flaky := &fakeTool{name: "flaky", diagID: "F1", failFor: projects[1]}
	steady := &fakeTool{name: "steady", diagID: "S1"}

	results, err := NewRunner([]contract.Tool{flaky, steady}, 4, time.Second).Collect(context.Background(), projects)
	require.NoError(t, err)

	assert.Empty(t, results[0].Failures)
	assert.Equal(t, []string{"F1", "S1"}, results[0].Diagnostics.IDs())

	bad := results[1]
	require.Len(t, bad.Failures, 1)
	assert.Equal(t, "flaky", bad.Failures[0].Tool)
	assert.Equal(t, projects[1], bad.Failures[0].Project)
	assert.ErrorIs(t, bad.Failures[0], schema.ErrToolExecution)
	assert.Equal(t, []string{"S1"}, bad.Diagnostics.IDs(), "sibling unit still reports")
	assert.False(t, bad.AllFailed())

	var agg *AggregatedError
	require.ErrorAs(t, bad.Err(), &agg)
	assert.ErrorIs(t, bad.Err(), schema.ErrToolExecution)
}

func TestCollect_Timeout(t *testing.T) {
	projects := projectDirs(t, "slow")
	slow := &fakeTool{name: "slow", diagID: "X", delay: 5 * time.Second}
	fast := &fakeTool{name: "fast", diagID: "Y"}

	start := time.Now()
	results, err := NewRunner([]contract.Tool{slow, fast}, 2, 50*time.Millisecond).Collect(context.Background(), projects)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, results[0].Failures, 1)
	assert.ErrorIs(t, results[0].Failures[0], context.DeadlineExceeded)
	assert.Equal(t, []string{"Y"}, results[0].Diagnostics.IDs())
}

func TestCollect_AllFailed(t *testing.T) {
	projects := projectDirs(t, "broken")
	results, err := NewRunner([]contract.Tool{&fakeTool{name: "t", diagID: "T", failFor: projects[0]}}, 1, time.Second).
		Collect(context.Background(), projects)
	require.NoError(t, err)
	assert.True(t, results[0].AllFailed())
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner([]contract.Tool{&fakeTool{name: "t", diagID: "T"}}, 1, time.Second).
		Collect(ctx, projectDirs(t, "p"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectOne_Deterministic(t *testing.T) {
	project := projectDirs(t, "proj")[0]
	tools := []contract.Tool{&fakeTool{name: "a", diagID: "D"}, &fakeTool{name: "b", diagID: "D"}}
	runner := NewRunner(tools, 2, time.Second)

	first, err := runner.CollectOne(context.Background(), project)
	require.NoError(t, err)
	second, err := runner.CollectOne(context.Background(), project)
	require.NoError(t, err)

	assert.Equal(t, 8.0, first.Diagnostics["D"].Value(), "same id from two tools is merged")
	assert.Equal(t, first.Diagnostics, second.Diagnostics)
}

func TestCollect_CacheHit(t *testing.T) {
	project := projectDirs(t, "cached")[0]
	tool := &fakeTool{name: "lint", diagID: "L1"}

	cached := schema.DiagnosticSet{"L1": schema.NewDiagnostic("L1", "lint")}
	cached["L1"].AddFinding(schema.NewFinding("x.go", "warning", 1, 1, 0))
	data, err := json.Marshal(cached)
	require.NoError(t, err)

	store := &MockCacheStore{}
	store.On("Get", mock.Anything).Return(data, currentCacheVersion, time.Now().Unix(), nil)

	res, err := NewRunner([]contract.Tool{tool}, 1, time.Second).WithCache(store).CollectOne(context.Background(), project)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Diagnostics["L1"].Value())
	assert.Equal(t, int32(0), tool.calls.Load(), "tool is not run on a cache hit")
	store.AssertExpectations(t)
}

func TestCollect_ReconfiguredToolMissesCache(t *testing.T) {
	project := projectDirs(t, "app")[0]
	store, err := iocache.NewCacheStore("tqi_tool_cache", schema.SQLiteBackend, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	collect := func(tool contract.Tool) float64 {
		res, err := NewRunner([]contract.Tool{tool}, 1, time.Second).WithCache(store).CollectOne(context.Background(), project)
		require.NoError(t, err)
		return res.Diagnostics["L1"].Value()
	}

	first := &configuredTool{fakeTool: fakeTool{name: "lint", diagID: "L1"}, findings: 1}
	assert.Equal(t, 1.0, collect(first))
	assert.Equal(t, 1.0, collect(first))
	assert.Equal(t, int32(1), first.calls.Load(), "same configuration is served from the cache")

	reconfigured := &configuredTool{fakeTool: fakeTool{name: "lint", diagID: "L1"}, findings: 3}
	assert.Equal(t, 3.0, collect(reconfigured))
	assert.Equal(t, int32(1), reconfigured.calls.Load())
}

func TestToolIdentity(t *testing.T) {
	plain := &fakeTool{name: "lint"}
	assert.Equal(t, "lint", toolIdentity(plain))

	a := &configuredTool{fakeTool: fakeTool{name: "lint"}, findings: 1}
	b := &configuredTool{fakeTool: fakeTool{name: "lint"}, findings: 2}
	assert.NotEqual(t, toolIdentity(a), toolIdentity(b))
	assert.NotEqual(t, toolIdentity(plain), toolIdentity(a))
}

func TestCollect_CacheMissStores(t *testing.T) {
	project := projectDirs(t, "fresh")[0]
	tool := &fakeTool{name: "lint", diagID: "L1"}

	store := &MockCacheStore{}
	store.On("Get", mock.Anything).Return([]byte{}, 0, int64(0), assert.AnError)
	store.On("Set", mock.Anything, mock.Anything, currentCacheVersion, mock.Anything).Return(nil)

	res, err := NewRunner([]contract.Tool{tool}, 1, time.Second).WithCache(store).CollectOne(context.Background(), project)
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Diagnostics["L1"].Value())
	assert.Equal(t, int32(1), tool.calls.Load())
	store.AssertExpectations(t)
}

func TestCollect_FailuresAreNotCached(t *testing.T) {
	project := projectDirs(t, "fails")[0]
	tool := &fakeTool{name: "lint", diagID: "L1", failFor: project}

	store := &MockCacheStore{}
	store.On("Get", mock.Anything).Return([]byte{}, 0, int64(0), assert.AnError)

	res, err := NewRunner([]contract.Tool{tool}, 1, time.Second).WithCache(store).CollectOne(context.Background(), project)
	require.NoError(t, err)
	assert.Len(t, res.Failures, 1)
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckCacheHit(t *testing.T) {
	valid, _ := json.Marshal(schema.DiagnosticSet{"L1": schema.NewDiagnostic("L1", "lint")})

	tests := []struct {
		name    string
		data    []byte
		version int
		ts      int64
		err     error
		hit     bool
	}{
		{"hit", valid, currentCacheVersion, time.Now().Unix(), nil, true},
		{"version mismatch", valid, currentCacheVersion - 1, time.Now().Unix(), nil, false},
		{"stale", valid, currentCacheVersion, time.Now().Add(-8 * 24 * time.Hour).Unix(), nil, false},
		{"store error", []byte{}, 0, 0, assert.AnError, false},
		{"invalid json", []byte("invalid json"), currentCacheVersion, time.Now().Unix(), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockCacheStore{}
			store.On("Get", "key").Return(tt.data, tt.version, tt.ts, tt.err)
			got := checkCacheHit(store, "key")
			assert.Equal(t, tt.hit, got != nil)
			store.AssertExpectations(t)
		})
	}
}

func TestProjectFingerprint(t *testing.T) {
	project := projectDirs(t, "fp")[0]
	first := projectFingerprint(project)
	assert.NotEmpty(t, first)
	assert.Equal(t, first, projectFingerprint(project))

	require.NoError(t, os.WriteFile(filepath.Join(project, "new.go"), []byte("package main\n"), 0o644))
	assert.NotEqual(t, first, projectFingerprint(project))

	assert.Empty(t, projectFingerprint(filepath.Join(project, "missing")))
	assert.NotEqual(t, generateCacheKey("a", project, first), generateCacheKey("b", project, first))
}

func TestAggregatedError(t *testing.T) {
	single := &AggregatedError{Failures: []schema.ToolFailure{{Tool: "a", Project: "p", Err: assert.AnError}}}
	assert.Equal(t, "[a@p] "+assert.AnError.Error(), single.Error())

	multi := &AggregatedError{Failures: []schema.ToolFailure{
		{Tool: "a", Project: "p", Err: assert.AnError},
		{Tool: "b", Project: "p", Err: schema.ErrUnparseableOutput},
	}}
	assert.Contains(t, multi.Error(), "2 tools failed")
	assert.ErrorIs(t, multi, schema.ErrUnparseableOutput)
	assert.Equal(t, "no errors", (&AggregatedError{}).Error())
}
