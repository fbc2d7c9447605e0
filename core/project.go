package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/tqi/core/analyze"
	"github.com/huangsam/tqi/core/bench"
	"github.com/huangsam/tqi/core/model"
	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/internal/tool"
	"github.com/huangsam/tqi/schema"
	"golang.org/x/sync/errgroup"
)

// newRunner builds the tool runner for a config, with caching when a store is configured.
func newRunner(cfg *contract.Config, registry *tool.Registry, mgr contract.CacheManager) *analyze.Runner {
	runner := analyze.NewRunner(registry.Tools(), cfg.Workers, cfg.ToolTimeout).
		WithProgress(cfg.ShowProgress)
	if mgr != nil {
		if store := mgr.GetToolCacheStore(); store != nil {
			runner = runner.WithCache(store)
		}
	}
	return runner
}

// EvaluateProjects collects diagnostics for every project and scores each one against the
// model. Projects are scored in parallel; the model is only read. A project where every tool
// failed cannot be scored and is reported as an error for that project alone, while a
// structural model problem aborts the whole run.
func EvaluateProjects(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, m *model.Model, collector bench.Collector, projects []string) ([]schema.ProjectResult, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, errors.New("no projects to evaluate")
	}

	names := contract.ProjectNames(projects)
	runID := uuid.NewString()
	evaluated := 0
	ctx = beginHistory(ctx, cfg, mgr, m.Name())
	defer func() { endHistory(ctx, mgr, evaluated) }()

	collected, err := collector.Collect(ctx, projects)
	if err != nil {
		return nil, fmt.Errorf("collecting diagnostics: %w", err)
	}

	results := make([]*schema.ProjectResult, len(collected))
	var (
		mu       sync.Mutex
		skipped  []error
		evalTime = time.Now()
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i, pd := range collected {
		g.Go(func() error {
			if pd.AllFailed() {
				mu.Lock()
				skipped = append(skipped, fmt.Errorf("%s: %w", names[i], pd.Err()))
				mu.Unlock()
				return nil
			}
			eval, err := Evaluate(m, pd.Diagnostics)
			if err != nil {
				return err
			}
			result := buildProjectResult(runID, names[i], m, &pd, eval, evalTime)
			recordHistory(gCtx, mgr, result)
			results[i] = &result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]schema.ProjectResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	evaluated = len(out)
	if len(out) == 0 {
		return nil, errors.Join(append([]error{errors.New("no project could be evaluated")}, skipped...)...)
	}
	for _, err := range skipped {
		contract.LogWarn("Skipped project", err)
	}
	return out, nil
}

// buildProjectResult turns an evaluation into the artifact recorded for a project.
func buildProjectResult(runID, name string, m *model.Model, pd *analyze.ProjectDiagnostics, eval *schema.Evaluation, at time.Time) schema.ProjectResult {
	result := schema.ProjectResult{
		RunID:       runID,
		Project:     name,
		Path:        pd.Path,
		Model:       m.Name(),
		TQI:         eval.TQI,
		Label:       contract.GetPlainLabel(eval.TQI),
		Nodes:       eval.NodeScores(),
		Warnings:    eval.Warnings,
		EvaluatedAt: at,
	}
	for _, f := range pd.Failures {
		result.Failures = append(result.Failures, f.Error())
		result.Warnings = append(result.Warnings, schema.Warning{
			Kind:    schema.ToolFailureWarning,
			Subject: f.Tool,
			Message: f.Err.Error(),
		})
	}
	return result
}

// beginHistory opens a history run when a history store is configured.
func beginHistory(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, modelName string) context.Context {
	store := historyStore(mgr)
	if store == nil {
		return ctx
	}
	runID, err := store.BeginRun(modelName, time.Now(), cfg.ConfigParams())
	if err != nil {
		contract.LogWarn("Evaluation history initialization failed", err)
		return ctx
	}
	return withHistoryRun(ctx, runID)
}

// recordHistory stores every node score of a project under the current run.
func recordHistory(ctx context.Context, mgr contract.CacheManager, result schema.ProjectResult) {
	runID, ok := historyRunFromContext(ctx)
	store := historyStore(mgr)
	if !ok || store == nil {
		return
	}
	if err := store.RecordNodeScores(runID, result); err != nil {
		contract.LogWarn(fmt.Sprintf("Evaluation history failed for %s", result.Project), err)
	}
}

// endHistory finalizes the current run.
func endHistory(ctx context.Context, mgr contract.CacheManager, totalProjects int) {
	runID, ok := historyRunFromContext(ctx)
	store := historyStore(mgr)
	if !ok || store == nil {
		return
	}
	if err := store.EndRun(runID, time.Now(), totalProjects); err != nil {
		contract.LogWarn("Failed to finalize evaluation history", err)
	}
}

func historyStore(mgr contract.CacheManager) contract.HistoryStore {
	if mgr == nil {
		return nil
	}
	return mgr.GetHistoryStore()
}
