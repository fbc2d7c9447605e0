// Package analyze runs analyzer tools over projects on a bounded worker pool.
package analyze

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/schema"
	"golang.org/x/sync/errgroup"
)

// ProjectDiagnostics is everything the tools reported for one project.
type ProjectDiagnostics struct {
	Path        string
	Diagnostics schema.DiagnosticSet
	Failures    []schema.ToolFailure
	Succeeded   int // number of tools that produced diagnostics
}

// AllFailed reports whether no tool produced diagnostics for the project.
func (p *ProjectDiagnostics) AllFailed() bool {
	return p.Succeeded == 0 && len(p.Failures) > 0
}

// Err returns the failures as one error, or nil when every tool succeeded.
func (p *ProjectDiagnostics) Err() error {
	if len(p.Failures) == 0 {
		return nil
	}
	return &AggregatedError{Failures: p.Failures}
}

// Runner executes every (project, tool) unit. A failed unit is recorded and never
// cancels its siblings.
type Runner struct {
	tools    []contract.Tool
	workers  int
	timeout  time.Duration
	cache    contract.CacheStore
	progress bool
}

// NewRunner creates a runner. Non-positive workers or timeout fall back to defaults.
func NewRunner(tools []contract.Tool, workers int, timeout time.Duration) *Runner {
	if workers <= 0 {
		workers = contract.DefaultWorkers
	}
	if timeout <= 0 {
		timeout = contract.DefaultToolTimeout
	}
	return &Runner{tools: tools, workers: workers, timeout: timeout}
}

// WithCache enables the tool output cache. A nil store disables it.
func (r *Runner) WithCache(store contract.CacheStore) *Runner {
	r.cache = store
	return r
}

// WithProgress enables the progress bar when stderr is a terminal.
func (r *Runner) WithProgress(enabled bool) *Runner {
	r.progress = enabled
	return r
}

// unitResult is the outcome of one (project, tool) unit.
type unitResult struct {
	diags schema.DiagnosticSet
	err   error
}

// Collect runs every tool on every project. Results come back in project order and each
// project's diagnostics are merged in tool order, so the output does not depend on scheduling.
// The only error returned is cancellation of ctx itself.
func (r *Runner) Collect(ctx context.Context, projects []string) ([]ProjectDiagnostics, error) {
	results := make([][]unitResult, len(projects))
	for i := range results {
		results[i] = make([]unitResult, len(r.tools))
	}

	fingerprints := make([]string, len(projects))
	if r.cache != nil {
		for i, p := range projects {
			fingerprints[i] = projectFingerprint(p)
		}
	}

	bar := newProgress(r.progress, "Running tools", len(projects)*len(r.tools))
	defer bar.Complete()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	var mu sync.Mutex
	for pi, project := range projects {
		for ti, tool := range r.tools {
			g.Go(func() error {
				select {
				case <-gCtx.Done():
					return gCtx.Err()
				default:
				}

				diags, err := r.runUnit(gCtx, tool, project, fingerprints[pi])
				bar.Increment(1)

				mu.Lock()
				results[pi][ti] = unitResult{diags: diags, err: err}
				mu.Unlock()

				// Unit failures are data; returning nil keeps siblings running
				return nil
			})
		}
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]ProjectDiagnostics, len(projects))
	for pi, project := range projects {
		pd := ProjectDiagnostics{Path: project, Diagnostics: make(schema.DiagnosticSet)}
		for ti, res := range results[pi] {
			if res.err != nil {
				pd.Failures = append(pd.Failures, schema.ToolFailure{
					Tool:    r.tools[ti].Name(),
					Project: project,
					Err:     res.err,
				})
				continue
			}
			pd.Succeeded++
			pd.Diagnostics.Merge(res.diags)
		}
		out[pi] = pd
	}
	return out, nil
}

// CollectOne runs every tool on a single project.
func (r *Runner) CollectOne(ctx context.Context, project string) (*ProjectDiagnostics, error) {
	out, err := r.Collect(ctx, []string{project})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// runUnit analyzes and parses one (project, tool) pair under the unit timeout.
func (r *Runner) runUnit(ctx context.Context, tool contract.Tool, project, fingerprint string) (schema.DiagnosticSet, error) {
	if r.cache != nil && fingerprint != "" {
		return cachedRun(ctx, r.cache, tool, project, fingerprint, r.run)
	}
	return r.run(ctx, tool, project)
}

func (r *Runner) run(ctx context.Context, tool contract.Tool, project string) (schema.DiagnosticSet, error) {
	unitCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	artifact, err := tool.Analyze(unitCtx, project)
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(artifact) }()

	diags, err := tool.ParseAnalysis(artifact)
	if err != nil {
		return nil, err
	}
	if diags == nil {
		return nil, fmt.Errorf("%w: %s returned no diagnostic set", schema.ErrUnparseableOutput, tool.Name())
	}
	return diags, nil
}
