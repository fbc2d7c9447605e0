package bench

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/tqi/core/algo"
	"github.com/huangsam/tqi/core/analyze"
	"github.com/huangsam/tqi/core/model"
	"github.com/huangsam/tqi/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCollector returns canned diagnostics keyed by project path.
type stubCollector struct {
	byProject map[string]analyze.ProjectDiagnostics
	err       error
	calls     int
}

func (s *stubCollector) Collect(_ context.Context, projects []string) ([]analyze.ProjectDiagnostics, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]analyze.ProjectDiagnostics, 0, len(projects))
	for _, p := range projects {
		pd, ok := s.byProject[p]
		if !ok {
			pd = analyze.ProjectDiagnostics{Path: p, Diagnostics: schema.DiagnosticSet{}, Succeeded: 1}
		}
		pd.Path = p
		out = append(out, pd)
	}
	return out, nil
}

// diagSet builds a diagnostic set where each id has the given number of findings.
func diagSet(counts map[string]int) schema.DiagnosticSet {
	set := make(schema.DiagnosticSet, len(counts))
	for id, n := range counts {
		d := schema.NewDiagnostic(id, "lint")
		for range n {
			d.AddFinding(schema.NewFinding("main.go", "warning", 1, 0, 0))
		}
		set[id] = d
	}
	return set
}

func locSet(counts map[string]int, loc float64) schema.DiagnosticSet {
	set := diagSet(counts)
	d := schema.NewDiagnostic(schema.LOCDiagnostic, "loc")
	d.Strategy = schema.SumStrategy
	d.AddFinding(schema.NewFinding("main.go", schema.NotApplicable, 0, 0, loc))
	set[schema.LOCDiagnostic] = d
	return set
}

func benchDescription(t *testing.T) *model.Description {
	t.Helper()
	d, err := model.NewDescription("bench", []*model.Node{
		{ID: "tqi", Kind: schema.TQIKind, Children: []string{"maintainability"}},
		{ID: "maintainability", Kind: schema.QualityAspectKind, Children: []string{"density", "naming", "ghost", "coverage"}},
		{ID: "density", Kind: schema.MeasureKind, Diagnostics: []string{"W1"}, NormalizeBy: schema.LOCDiagnostic},
		{ID: "naming", Kind: schema.MeasureKind, Diagnostics: []string{"N1", "N2"}},
		{ID: "ghost", Kind: schema.MeasureKind, Diagnostics: []string{"NEVER"}},
		{ID: "coverage", Kind: schema.MeasureKind, Diagnostics: []string{"C1"}, Positive: true},
	})
	require.NoError(t, err)
	return d
}

func newBenchmarker(t *testing.T, c Collector, policy schema.ThresholdPolicy, defaults []float64) *Benchmarker {
	t.Helper()
	deriver, err := algo.NewThresholdDeriver(policy, nil)
	require.NoError(t, err)
	b, err := New(c, deriver, defaults)
	require.NoError(t, err)
	return b
}

func TestNew(t *testing.T) {
	deriver, err := algo.NewThresholdDeriver(schema.QuartilePolicy, nil)
	require.NoError(t, err)

	_, err = New(nil, deriver, nil)
	assert.Error(t, err)

	_, err = New(&stubCollector{}, deriver, []float64{1, 2})
	assert.Error(t, err, "defaults must match the policy size")

	_, err = New(&stubCollector{}, deriver, []float64{1, 3, 2})
	assert.Error(t, err, "defaults must be ordered")

	b, err := New(&stubCollector{}, deriver, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.QuartilePolicy, b.Policy())
	assert.Equal(t, []float64{0, 0, 0}, b.defaults)
}

func TestDeriveThresholds(t *testing.T) {
	c := &stubCollector{byProject: map[string]analyze.ProjectDiagnostics{
		"p1": {Diagnostics: locSet(map[string]int{"W1": 10, "N1": 1, "C1": 2}, 100), Succeeded: 2},
		"p2": {Diagnostics: locSet(map[string]int{"W1": 40, "N2": 3, "C1": 4}, 200), Succeeded: 2},
		"p3": {Diagnostics: locSet(map[string]int{"W1": 60, "N1": 2, "N2": 3, "C1": 6}, 200), Succeeded: 2},
	}}
	b := newBenchmarker(t, c, schema.MinMaxPolicy, nil)

	res, err := b.DeriveThresholds(context.Background(), benchDescription(t), []string{"p1", "p2", "p3"})
	require.NoError(t, err)

	// density samples are 0.1, 0.2, 0.3; lower is better so thresholds descend
	require.Len(t, res.Thresholds["density"], 2)
	assert.InDelta(t, 0.3, res.Thresholds["density"][0], 1e-9)
	assert.InDelta(t, 0.1, res.Thresholds["density"][1], 1e-9)

	// naming samples are 1, 3, 5
	assert.Equal(t, []float64{5, 1}, res.Thresholds["naming"])

	// coverage is higher-is-better so thresholds ascend
	assert.Equal(t, []float64{2, 6}, res.Thresholds["coverage"])

	assert.Equal(t, 3, res.Samples["density"])
	assert.Equal(t, 3, res.Samples["naming"])
	assert.Equal(t, []string{"p1", "p2", "p3"}, res.Projects)
	assert.Empty(t, res.Failures)
}

func TestDeriveThresholds_ZeroSampleMeasure(t *testing.T) {
	c := &stubCollector{byProject: map[string]analyze.ProjectDiagnostics{
		"p1": {Diagnostics: locSet(map[string]int{"W1": 1}, 10), Succeeded: 1},
		"p2": {Diagnostics: locSet(map[string]int{"W1": 2}, 10), Succeeded: 1},
	}}

	t.Run("zeros by default", func(t *testing.T) {
		b := newBenchmarker(t, c, schema.PercentilePolicy, nil)
		res, err := b.DeriveThresholds(context.Background(), benchDescription(t), []string{"p1", "p2"})
		require.NoError(t, err)

		thresholds, ok := res.Thresholds["ghost"]
		require.True(t, ok, "zero sample measure must stay in the mapping")
		assert.Equal(t, []float64{0, 0, 0}, thresholds)
		assert.Equal(t, 0, res.Samples["ghost"])

		var found bool
		for _, w := range res.Warnings {
			if w.Kind == schema.ZeroSampleWarning && w.Subject == "ghost" {
				found = true
				assert.Contains(t, w.Message, schema.ErrZeroSampleMeasure.Error())
			}
		}
		assert.True(t, found)
	})

	t.Run("configured defaults are oriented", func(t *testing.T) {
		b := newBenchmarker(t, c, schema.PercentilePolicy, []float64{1, 2, 3})
		res, err := b.DeriveThresholds(context.Background(), benchDescription(t), []string{"p1", "p2"})
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 2, 1}, res.Thresholds["ghost"])
		assert.Equal(t, []float64{1, 2, 3}, res.Thresholds["coverage"], "positive measure without samples keeps ascending defaults")
	})
}

func TestDeriveThresholds_ToolFailures(t *testing.T) {
	failure := schema.ToolFailure{Tool: "lint", Project: "p2", Err: schema.ErrToolExecution}
	c := &stubCollector{byProject: map[string]analyze.ProjectDiagnostics{
		"p1": {Diagnostics: locSet(map[string]int{"N1": 4}, 10), Succeeded: 2},
		"p2": {Diagnostics: schema.DiagnosticSet{}, Failures: []schema.ToolFailure{failure}},
	}}
	b := newBenchmarker(t, c, schema.MinMaxPolicy, nil)

	res, err := b.DeriveThresholds(context.Background(), benchDescription(t), []string{"p1", "p2"})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1"}, res.Projects, "project where every tool failed contributes no samples")
	assert.Equal(t, []float64{4, 4}, res.Thresholds["naming"])
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0], schema.ErrToolExecution)

	kinds := make(map[schema.WarningKind]int)
	for _, w := range res.Warnings {
		kinds[w.Kind]++
	}
	assert.Equal(t, 1, kinds[schema.ToolFailureWarning])
}

func TestDeriveThresholds_MissingNormalizer(t *testing.T) {
	c := &stubCollector{byProject: map[string]analyze.ProjectDiagnostics{
		"p1": {Diagnostics: diagSet(map[string]int{"W1": 5}), Succeeded: 1},
	}}
	b := newBenchmarker(t, c, schema.MinMaxPolicy, nil)

	res, err := b.DeriveThresholds(context.Background(), benchDescription(t), []string{"p1"})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5}, res.Thresholds["density"])

	var found bool
	for _, w := range res.Warnings {
		if w.Kind == schema.MissingNormalizerWarning && w.Subject == "density" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDeriveThresholds_Errors(t *testing.T) {
	b := newBenchmarker(t, &stubCollector{}, schema.MinMaxPolicy, nil)
	_, err := b.DeriveThresholds(context.Background(), benchDescription(t), nil)
	assert.Error(t, err, "empty corpus")

	b = newBenchmarker(t, &stubCollector{err: context.Canceled}, schema.MinMaxPolicy, nil)
	_, err = b.DeriveThresholds(context.Background(), benchDescription(t), []string{"p1"})
	assert.True(t, errors.Is(err, context.Canceled))

	allFailed := &stubCollector{byProject: map[string]analyze.ProjectDiagnostics{
		"p1": {Failures: []schema.ToolFailure{{Tool: "lint", Project: "p1", Err: schema.ErrToolExecution}}},
	}}
	b = newBenchmarker(t, allFailed, schema.MinMaxPolicy, nil)
	_, err = b.DeriveThresholds(context.Background(), benchDescription(t), []string{"p1"})
	assert.ErrorIs(t, err, schema.ErrToolExecution)
}

func TestDeriveThresholds_Deterministic(t *testing.T) {
	c := &stubCollector{byProject: map[string]analyze.ProjectDiagnostics{
		"p1": {Diagnostics: locSet(map[string]int{"W1": 7, "N1": 2}, 70), Succeeded: 1},
		"p2": {Diagnostics: locSet(map[string]int{"W1": 3, "N1": 9}, 30), Succeeded: 1},
		"p3": {Diagnostics: locSet(map[string]int{"W1": 1, "N2": 4}, 50), Succeeded: 1},
	}}
	b := newBenchmarker(t, c, schema.PercentilePolicy, nil)
	desc := benchDescription(t)

	first, err := b.DeriveThresholds(context.Background(), desc, []string{"p1", "p2", "p3"})
	require.NoError(t, err)
	second, err := b.DeriveThresholds(context.Background(), desc, []string{"p1", "p2", "p3"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte{}, 0o644))
}

func TestDiscoverProjects(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "alpha", "alpha.sln"))
	touch(t, filepath.Join(root, "alpha", "nested", "inner.sln"))
	touch(t, filepath.Join(root, "group", "beta", "beta.sln"))
	touch(t, filepath.Join(root, "group", "readme.md"))
	touch(t, filepath.Join(root, "node_modules", "dep", "dep.sln"))
	touch(t, filepath.Join(root, "plain", "main.go"))

	t.Run("marker", func(t *testing.T) {
		projects, err := DiscoverProjects(root, "*.sln")
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "alpha"),
			filepath.Join(root, "group", "beta"),
		}, projects)
	})

	t.Run("no marker uses immediate subdirectories", func(t *testing.T) {
		projects, err := DiscoverProjects(root, "")
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "alpha"),
			filepath.Join(root, "group"),
			filepath.Join(root, "plain"),
		}, projects)
	})

	t.Run("bad marker", func(t *testing.T) {
		_, err := DiscoverProjects(root, "[")
		assert.Error(t, err)
	})

	t.Run("root is a file", func(t *testing.T) {
		_, err := DiscoverProjects(filepath.Join(root, "plain", "main.go"), "")
		assert.Error(t, err)
	})
}
