// Package core has core logic for calibration, evaluation and ranking.
package core

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/huangsam/tqi/core/algo"
	"github.com/huangsam/tqi/core/bench"
	"github.com/huangsam/tqi/core/model"
	"github.com/huangsam/tqi/core/weight"
	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/internal/outwriter"
	"github.com/huangsam/tqi/internal/tool"
	"github.com/huangsam/tqi/schema"
)

// ExecutorFunc defines the function signature for executing different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// ExecuteCalibrate derives thresholds and weights for a model description from the benchmark
// corpus, writes the calibrated model and prints the calibration report.
func ExecuteCalibrate(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()

	m, report, err := RunCalibration(ctx, cfg, mgr)
	if err != nil {
		return err
	}

	report.Output = CalibratedModelPath(cfg, m.Name())
	if err := model.SaveModel(report.Output, m); err != nil {
		return fmt.Errorf("writing calibrated model: %w", err)
	}
	contract.LogWarnings(report.Warnings)

	return outwriter.WriteCalibration(report, cfg, time.Since(start))
}

// RunCalibration loads the description, discovers the corpus and derives the model.
func RunCalibration(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*model.Model, *schema.CalibrationReport, error) {
	if cfg.DescriptionPath == "" {
		return nil, nil, fmt.Errorf("a model description is required (--description)")
	}
	if cfg.BenchmarkRepo == "" {
		return nil, nil, fmt.Errorf("a benchmark corpus is required (--benchmark-repo)")
	}

	desc, err := model.LoadDescription(cfg.DescriptionPath)
	if err != nil {
		return nil, nil, err
	}
	projects, err := bench.DiscoverProjects(cfg.BenchmarkRepo, cfg.ProjectMarker)
	if err != nil {
		return nil, nil, fmt.Errorf("discovering corpus projects: %w", err)
	}
	if !shouldSuppressHeader(ctx) {
		contract.LogCalibrationHeader(cfg, len(projects))
	}

	registry, err := tool.NewRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = registry.Close() }()

	deriver, err := algo.NewThresholdDeriver(cfg.ThresholdPolicy, cfg.Percentiles)
	if err != nil {
		return nil, nil, err
	}
	benchmarker, err := bench.New(newRunner(cfg, registry, mgr), deriver, cfg.DefaultThresholds)
	if err != nil {
		return nil, nil, err
	}
	weighter, err := weight.New(cfg.Weighter, cfg.ComparisonsDir, cfg.ConsistencyTolerance)
	if err != nil {
		return nil, nil, err
	}

	return DeriveModel(ctx, desc, benchmarker, weighter, projects)
}

// CalibratedModelPath is where calibration writes its model: the configured model path,
// or <results-dir>/<model-name>.calibrated.json.
func CalibratedModelPath(cfg *contract.Config, modelName string) string {
	if cfg.ModelPath != "" {
		return cfg.ModelPath
	}
	return filepath.Join(cfg.ResultsDir, modelName+".calibrated.json")
}

// ExecuteEvaluate scores one project, or every project under the path in batch mode,
// writes a result artifact per project and prints the results.
func ExecuteEvaluate(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()

	results, err := RunEvaluation(ctx, cfg, mgr)
	if err != nil {
		return err
	}

	for _, r := range results {
		contract.LogWarnings(r.Warnings)
		if _, err := outwriter.WriteProjectArtifact(cfg.ResultsDir, r); err != nil {
			contract.LogWarn(fmt.Sprintf("Failed to write result for %s", r.Project), err)
		}
	}

	duration := time.Since(start)
	if cfg.Batch {
		return outwriter.WriteBatch(algo.RankProjects(results, cfg.ResultLimit), cfg, duration)
	}
	var weakest []schema.EnrichedNodeScore
	if cfg.Explain {
		weakest = WeakestMeasures(results[0], cfg.ResultLimit)
	}
	return outwriter.WriteEvaluation(results[0], weakest, cfg, duration)
}

// RunEvaluation loads the calibrated model and evaluates the configured project(s).
func RunEvaluation(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) ([]schema.ProjectResult, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("a calibrated model is required (--model)")
	}
	m, err := model.LoadModel(cfg.ModelPath)
	if err != nil {
		return nil, err
	}

	projects := []string{cfg.ProjectPath}
	if cfg.Batch {
		projects, err = bench.DiscoverProjects(cfg.ProjectPath, cfg.ProjectMarker)
		if err != nil {
			return nil, fmt.Errorf("discovering projects: %w", err)
		}
	}
	if !shouldSuppressHeader(ctx) {
		contract.LogEvaluationHeader(cfg, m.Name(), len(projects))
	}

	registry, err := tool.NewRegistry(cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = registry.Close() }()

	return EvaluateProjects(ctx, cfg, mgr, m, newRunner(cfg, registry, mgr), projects)
}

// EvaluateQuiet evaluates a single project without printing headers or writing artifacts.
// The MCP server uses it.
func EvaluateQuiet(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*schema.ProjectResult, error) {
	results, err := RunEvaluation(withSuppressHeader(ctx), cfg.CloneWithProject(cfg.ProjectPath), mgr)
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

// ExecuteModelInspect prints the shape, thresholds and weights of a model document.
func ExecuteModelInspect(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	doc, err := model.ReadDocument(modelDocumentPath(cfg))
	if err != nil {
		return err
	}
	desc, err := doc.Description()
	if err != nil {
		return err
	}
	return outwriter.WriteModel(doc, model.Summary(desc), cfg)
}

// ExecuteModelValidate checks a model document. A description must be well formed; a
// calibrated model must also pass the evaluation gate.
func ExecuteModelValidate(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	path := modelDocumentPath(cfg)
	doc, err := model.ReadDocument(path)
	if err != nil {
		return err
	}
	desc, err := doc.Description()
	if err != nil {
		return err
	}
	if cfg.ModelPath != "" {
		if _, err := doc.Model(); err != nil {
			return err
		}
		fmt.Printf("✅ %s is a valid calibrated model (%d nodes)\n", filepath.Base(path), len(desc.Nodes()))
		return nil
	}
	trimmed, warnings := desc.Trim()
	contract.LogWarnings(warnings)
	fmt.Printf("✅ %s is a valid description (%d nodes, %d after trimming)\n", filepath.Base(path), len(desc.Nodes()), len(trimmed.Nodes()))
	return nil
}

// modelDocumentPath prefers the calibrated model over the description.
func modelDocumentPath(cfg *contract.Config) string {
	if cfg.ModelPath != "" {
		return cfg.ModelPath
	}
	return cfg.DescriptionPath
}
