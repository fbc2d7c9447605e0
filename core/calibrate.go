package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/tqi/core/bench"
	"github.com/huangsam/tqi/core/model"
	"github.com/huangsam/tqi/core/weight"
	"github.com/huangsam/tqi/schema"
)

// ThresholdSource derives per-measure thresholds from a corpus. bench.Benchmarker implements it.
type ThresholdSource interface {
	Policy() schema.ThresholdPolicy
	DeriveThresholds(ctx context.Context, desc *model.Description, projects []string) (*bench.Result, error)
}

var _ ThresholdSource = &bench.Benchmarker{} // Compile-time check

// DeriveModel calibrates a description against a benchmark corpus. The description is trimmed
// first, then thresholds and weights are derived independently from the same immutable shape
// and written onto the model by id. A derived result that names no node aborts the run.
func DeriveModel(ctx context.Context, desc *model.Description, thresholds ThresholdSource, weighter weight.Weighter, projects []string) (*model.Model, *schema.CalibrationReport, error) {
	if desc == nil {
		return nil, nil, errors.New("no model description to calibrate")
	}
	if thresholds == nil || weighter == nil {
		return nil, nil, errors.New("calibration needs a threshold source and a weighter")
	}

	trimmed, warnings := desc.Trim()

	derived, err := thresholds.DeriveThresholds(ctx, trimmed, projects)
	if err != nil {
		return nil, nil, fmt.Errorf("deriving thresholds: %w", err)
	}
	warnings = append(warnings, derived.Warnings...)

	weightResults, weightWarnings, err := weighter.ElicitWeights(trimmed)
	if err != nil {
		return nil, nil, fmt.Errorf("eliciting weights: %w", err)
	}
	warnings = append(warnings, weightWarnings...)

	weights, err := weightsByNode(trimmed, weightResults)
	if err != nil {
		return nil, nil, err
	}

	m, err := model.Calibrate(trimmed, derived.Thresholds, weights)
	if err != nil {
		return nil, nil, err
	}

	report := &schema.CalibrationReport{
		Model:      m.Name(),
		Projects:   derived.Projects,
		Thresholds: derived.Thresholds,
		Samples:    derived.Samples,
		Weights:    weightResults,
		Warnings:   warnings,
	}
	for _, f := range derived.Failures {
		report.Failures = append(report.Failures, f.Error())
	}
	return m, report, nil
}

// weightsByNode keys weight results by node and child id, rejecting names the description lacks.
func weightsByNode(desc *model.Description, results []schema.WeightResult) (map[string]map[string]float64, error) {
	out := make(map[string]map[string]float64, len(results))
	for _, r := range results {
		n, err := desc.Node(r.NodeID)
		if err != nil || !n.IsAggregate() {
			return nil, schema.NodeError(schema.ErrUnknownNodeName, r.NodeID)
		}
		if len(r.Weights) != len(r.Children) {
			return nil, fmt.Errorf("%w: %q has %d weights for %d children", schema.ErrInvalidModel, r.NodeID, len(r.Weights), len(r.Children))
		}
		out[r.NodeID] = r.ByChild()
	}
	return out, nil
}
