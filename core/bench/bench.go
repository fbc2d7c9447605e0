// Package bench derives measure thresholds from a benchmark corpus.
package bench

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/huangsam/tqi/core/algo"
	"github.com/huangsam/tqi/core/analyze"
	"github.com/huangsam/tqi/core/model"
	"github.com/huangsam/tqi/schema"
)

// Collector produces the diagnostics of every corpus project.
// analyze.Runner is the production implementation.
type Collector interface {
	Collect(ctx context.Context, projects []string) ([]analyze.ProjectDiagnostics, error)
}

var _ Collector = &analyze.Runner{} // Compile-time check

// Result is the outcome of one threshold derivation.
type Result struct {
	Thresholds map[string][]float64 // oriented for evaluation, keyed by measure id
	Samples    map[string]int       // projects that reported the measure
	Projects   []string             // projects that contributed samples
	Warnings   []schema.Warning
	Failures   []schema.ToolFailure
}

// Benchmarker turns corpus diagnostics into per-measure thresholds.
type Benchmarker struct {
	collector Collector
	deriver   algo.ThresholdDeriver
	defaults  []float64
}

// New creates a benchmarker. Defaults are used for measures without samples and must
// match the deriver size; nil means all zeros.
func New(collector Collector, deriver algo.ThresholdDeriver, defaults []float64) (*Benchmarker, error) {
	if collector == nil || deriver == nil {
		return nil, errors.New("benchmarker needs a collector and a threshold deriver")
	}
	if defaults == nil {
		defaults = make([]float64, deriver.Size())
	}
	if len(defaults) != deriver.Size() {
		return nil, fmt.Errorf("default thresholds have %d values, %s policy needs %d", len(defaults), deriver.Name(), deriver.Size())
	}
	if !algo.Monotonic(defaults) {
		return nil, fmt.Errorf("default thresholds %v are not ordered", defaults)
	}
	return &Benchmarker{collector: collector, deriver: deriver, defaults: slices.Clone(defaults)}, nil
}

// Policy reports the threshold policy in use.
func (b *Benchmarker) Policy() schema.ThresholdPolicy {
	return b.deriver.Name()
}

// DeriveThresholds runs the tools over the corpus and derives thresholds for every measure of
// the description. Projects where every tool failed do not contribute samples. A measure none of
// the usable projects reported gets the default thresholds and a zero sample warning.
func (b *Benchmarker) DeriveThresholds(ctx context.Context, desc *model.Description, projects []string) (*Result, error) {
	if len(projects) == 0 {
		return nil, errors.New("benchmark corpus has no projects")
	}

	collected, err := b.collector.Collect(ctx, projects)
	if err != nil {
		return nil, fmt.Errorf("collecting corpus diagnostics: %w", err)
	}

	res := &Result{
		Thresholds: make(map[string][]float64),
		Samples:    make(map[string]int),
	}

	usable := make([]analyze.ProjectDiagnostics, 0, len(collected))
	for _, pd := range collected {
		res.Failures = append(res.Failures, pd.Failures...)
		for _, f := range pd.Failures {
			res.Warnings = append(res.Warnings, schema.Warning{
				Kind:    schema.ToolFailureWarning,
				Subject: f.Tool,
				Message: f.Error(),
			})
		}
		if pd.AllFailed() {
			continue
		}
		usable = append(usable, pd)
		res.Projects = append(res.Projects, pd.Path)
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("%w: no corpus project produced diagnostics", schema.ErrToolExecution)
	}

	for _, m := range desc.Measures() {
		samples := make([]float64, 0, len(usable))
		present := 0
		missingNormalizer := 0
		for _, pd := range usable {
			rv := model.MeasureValue(m, pd.Diagnostics)
			if rv.Present {
				present++
			}
			if rv.MissingNormalizer {
				missingNormalizer++
			}
			samples = append(samples, rv.Value)
		}
		res.Samples[m.ID] = present

		if missingNormalizer > 0 {
			res.Warnings = append(res.Warnings, schema.Warning{
				Kind:    schema.MissingNormalizerWarning,
				Subject: m.ID,
				Message: fmt.Sprintf("normalizer %q missing or zero in %d project(s), raw value left undivided", m.NormalizeBy, missingNormalizer),
			})
		}

		if present == 0 {
			res.Thresholds[m.ID] = algo.Orient(b.defaults, m.Positive)
			res.Warnings = append(res.Warnings, schema.Warning{
				Kind:    schema.ZeroSampleWarning,
				Subject: m.ID,
				Message: fmt.Sprintf("%v: none of %v reported by %d project(s), using default thresholds", schema.ErrZeroSampleMeasure, m.Diagnostics, len(usable)),
			})
			continue
		}
		res.Thresholds[m.ID] = algo.Orient(b.deriver.Derive(samples), m.Positive)
	}
	return res, nil
}
