package parquet

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/tqi/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRuns() []EvaluationRun {
	now := time.Now()
	start := now.Add(-2 * time.Hour)
	end := now.Add(-1*time.Hour - 30*time.Minute)
	duration := int32(end.Sub(start).Milliseconds())
	params := `{"workers":4,"tool_timeout":"5m0s"}`

	return []EvaluationRun{
		{
			RunID:                  1,
			ModelName:              "csharp",
			StartTime:              start,
			EndTime:                &end,
			RunDurationMs:          &duration,
			TotalProjectsEvaluated: 12,
			ConfigParams:           &params,
		},
		{
			RunID:     2,
			ModelName: "csharp",
			StartTime: now.Add(-10 * time.Minute),
			// Still running - nullable fields left empty
		},
	}
}

func sampleNodeScores() []NodeScore {
	now := time.Now()
	raw := 12.5
	return []NodeScore{
		{RunID: 1, Project: "alpha", NodeID: "tqi", NodeKind: "tqi", EvaluatedAt: now, Score: 0.71, Label: "Good"},
		{RunID: 1, Project: "alpha", NodeID: "long-methods", NodeKind: "measure", EvaluatedAt: now, RawValue: &raw, Score: 0.4, Label: "Fair"},
	}
}

func TestStructTags(t *testing.T) {
	tests := []struct {
		name    string
		model   any
		columns []string
	}{
		{
			name:    "evaluation run",
			model:   new(EvaluationRun),
			columns: []string{"run_id", "model_name", "start_time", "end_time", "run_duration_ms", "total_projects_evaluated", "config_params"},
		},
		{
			name:    "node score",
			model:   new(NodeScore),
			columns: []string{"run_id", "project", "node_id", "node_kind", "evaluated_at", "raw_value", "score", "label"},
		},
		{
			name:    "result node",
			model:   new(ResultNode),
			columns: []string{"run_uuid", "project", "model", "tqi", "node_id", "node_kind", "raw_value", "score", "evaluated_at"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parquet.SchemaOf(tt.model)
			require.NotNil(t, s)
			for _, col := range tt.columns {
				_, ok := s.Lookup(col)
				assert.True(t, ok, "Column %s should exist in schema", col)
			}
		})
	}
}

func TestWriteEvaluationRunsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "evaluation_runs.parquet")
	data := sampleRuns()

	require.NoError(t, WriteEvaluationRunsParquet(data, outputPath))

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer file.Close()

	reader := parquet.NewGenericReader[EvaluationRun](file)
	defer reader.Close()

	readData := make([]EvaluationRun, reader.NumRows())
	n, err := reader.Read(readData)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	require.Equal(t, len(data), n)

	for i := range data {
		assert.Equal(t, data[i].RunID, readData[i].RunID)
		assert.Equal(t, data[i].ModelName, readData[i].ModelName)
		assert.Equal(t, data[i].TotalProjectsEvaluated, readData[i].TotalProjectsEvaluated)
		if data[i].EndTime == nil {
			assert.Nil(t, readData[i].EndTime)
		} else {
			require.NotNil(t, readData[i].EndTime)
			assert.WithinDuration(t, *data[i].EndTime, *readData[i].EndTime, time.Nanosecond)
		}
		if data[i].ConfigParams == nil {
			assert.Nil(t, readData[i].ConfigParams)
		} else {
			require.NotNil(t, readData[i].ConfigParams)
			assert.Equal(t, *data[i].ConfigParams, *readData[i].ConfigParams)
		}
	}
}

func TestWriteNodeScoresParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "node_scores.parquet")
	data := sampleNodeScores()

	require.NoError(t, WriteNodeScoresParquet(data, outputPath))

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer file.Close()

	reader := parquet.NewGenericReader[NodeScore](file)
	defer reader.Close()

	readData := make([]NodeScore, reader.NumRows())
	n, err := reader.Read(readData)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	require.Equal(t, len(data), n)

	assert.Nil(t, readData[0].RawValue)
	require.NotNil(t, readData[1].RawValue)
	assert.InDelta(t, 12.5, *readData[1].RawValue, 1e-9)
	assert.Equal(t, "long-methods", readData[1].NodeID)
	assert.Equal(t, "Fair", readData[1].Label)
}

func TestWriteEvaluationRunsParquet_EmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteEvaluationRunsParquet([]EvaluationRun{}, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0), "Footer is written even without rows")
}

func TestWriteEvaluationRunsParquet_BadPath(t *testing.T) {
	err := WriteEvaluationRunsParquet(sampleRuns(), filepath.Join(t.TempDir(), "missing", "runs.parquet"))
	assert.Error(t, err)
}

func TestConvertRecords(t *testing.T) {
	end := time.Now()
	ms := int32(1500)
	runs := ConvertEvaluationRunRecords([]schema.EvaluationRunRecord{
		{RunID: 9, ModelName: "go", StartTime: end.Add(-time.Second), EndTime: &end, RunDurationMs: &ms, TotalProjectsEvaluated: 3},
	})
	require.Len(t, runs, 1)
	assert.Equal(t, int64(9), runs[0].RunID)
	assert.Equal(t, "go", runs[0].ModelName)
	assert.Equal(t, &ms, runs[0].RunDurationMs)
	assert.Nil(t, runs[0].ConfigParams)

	raw := 3.0
	scores := ConvertNodeScoreRecords([]schema.NodeScoreRecord{
		{RunID: 9, Project: "alpha", NodeID: "naming", NodeKind: "measure", RawValue: &raw, Score: 0.5, Label: "Fair"},
	})
	require.Len(t, scores, 1)
	assert.Equal(t, "naming", scores[0].NodeID)
	assert.Equal(t, 0.5, scores[0].Score)
	assert.Equal(t, &raw, scores[0].RawValue)
}

func TestFlattenResultsRoundTrip(t *testing.T) {
	raw := 15.0
	results := []schema.ProjectResult{
		{
			RunID: "c0ffee", Project: "alpha", Model: "two-level", TQI: 0.75,
			Nodes: []schema.NodeScore{
				{ID: "tqi", Kind: schema.TQIKind, Score: 0.75},
				{ID: "tests", Kind: schema.MeasureKind, Score: 0.75, RawValue: &raw},
			},
		},
		{RunID: "c0ffee", Project: "beta", Model: "two-level", TQI: 0.25, Nodes: []schema.NodeScore{{ID: "tqi", Kind: schema.TQIKind, Score: 0.25}}},
	}

	rows := FlattenResults(results)
	require.Len(t, rows, 3)
	assert.Equal(t, "alpha", rows[0].Project)
	assert.Equal(t, "beta", rows[2].Project)

	var buf bytes.Buffer
	require.NoError(t, WriteResultNodes(&buf, rows))

	read, err := parquet.Read[ResultNode](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, read, 3)
	assert.Equal(t, "c0ffee", read[1].RunUUID)
	require.NotNil(t, read[1].RawValue)
	assert.Equal(t, 15.0, *read[1].RawValue)
}
