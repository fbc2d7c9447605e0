// Package parquet provides data structures and functions for exporting tqi
// evaluation data to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/tqi/schema"
	"github.com/parquet-go/parquet-go"
)

// EvaluationRun represents a single evaluation run with metadata.
// This struct maps to the tqi_evaluation_runs database table.
type EvaluationRun struct {
	// RunID is the unique identifier for this evaluation run
	RunID int64 `parquet:"run_id,snappy"`

	// ModelName is the name of the calibrated model used for the run
	ModelName string `parquet:"model_name,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// TotalProjectsEvaluated is the number of projects scored in this run
	TotalProjectsEvaluated int32 `parquet:"total_projects_evaluated,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// NodeScore represents the score of one node for one project in a history run.
// This struct maps to the tqi_node_scores database table.
type NodeScore struct {
	RunID       int64     `parquet:"run_id,snappy"`
	Project     string    `parquet:"project,snappy"`
	NodeID      string    `parquet:"node_id,snappy"`
	NodeKind    string    `parquet:"node_kind,snappy"`
	EvaluatedAt time.Time `parquet:"evaluated_at,snappy"`
	RawValue    *float64  `parquet:"raw_value,optional,snappy"` // measures only
	Score       float64   `parquet:"score,snappy"`
	Label       string    `parquet:"label,snappy"`
}

// ResultNode is one row of a result artifact flattened for columnar output.
// Unlike NodeScore it carries the run UUID of the artifact rather than a history run id.
type ResultNode struct {
	RunUUID     string    `parquet:"run_uuid,snappy"`
	Project     string    `parquet:"project,snappy"`
	Model       string    `parquet:"model,snappy"`
	TQI         float64   `parquet:"tqi,snappy"`
	NodeID      string    `parquet:"node_id,snappy"`
	NodeKind    string    `parquet:"node_kind,snappy"`
	RawValue    *float64  `parquet:"raw_value,optional,snappy"`
	Score       float64   `parquet:"score,snappy"`
	EvaluatedAt time.Time `parquet:"evaluated_at,snappy"`
}

// WriteEvaluationRunsParquet writes a slice of EvaluationRun structs to a Parquet file.
func WriteEvaluationRunsParquet(data []EvaluationRun, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteNodeScoresParquet writes a slice of NodeScore structs to a Parquet file.
func WriteNodeScoresParquet(data []NodeScore, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteResultNodes writes result rows to w.
func WriteResultNodes(w io.Writer, data []ResultNode) error {
	return writeRows(w, data)
}

// writeFile creates outputPath and writes every row into it.
func writeFile[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return writeRows(file, data)
}

// writeRows infers the schema from the struct tags of T. Closing the writer flushes the footer,
// so its error is returned.
func writeRows[T any](w io.Writer, data []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertEvaluationRunRecords converts schema.EvaluationRunRecord to EvaluationRun for Parquet export.
func ConvertEvaluationRunRecords(records []schema.EvaluationRunRecord) []EvaluationRun {
	result := make([]EvaluationRun, len(records))
	for i, record := range records {
		result[i] = EvaluationRun{
			RunID:                  record.RunID,
			ModelName:              record.ModelName,
			StartTime:              record.StartTime,
			EndTime:                record.EndTime,
			RunDurationMs:          record.RunDurationMs,
			TotalProjectsEvaluated: record.TotalProjectsEvaluated,
			ConfigParams:           record.ConfigParams,
		}
	}
	return result
}

// ConvertNodeScoreRecords converts schema.NodeScoreRecord to NodeScore for Parquet export.
func ConvertNodeScoreRecords(records []schema.NodeScoreRecord) []NodeScore {
	result := make([]NodeScore, len(records))
	for i, record := range records {
		result[i] = NodeScore{
			RunID:       record.RunID,
			Project:     record.Project,
			NodeID:      record.NodeID,
			NodeKind:    record.NodeKind,
			EvaluatedAt: record.EvaluatedAt,
			RawValue:    record.RawValue,
			Score:       record.Score,
			Label:       record.Label,
		}
	}
	return result
}

// FlattenResults turns project results into one row per node, projects in the order given.
func FlattenResults(results []schema.ProjectResult) []ResultNode {
	var rows []ResultNode
	for _, r := range results {
		for _, n := range r.Nodes {
			rows = append(rows, ResultNode{
				RunUUID:     r.RunID,
				Project:     r.Project,
				Model:       r.Model,
				TQI:         r.TQI,
				NodeID:      n.ID,
				NodeKind:    string(n.Kind),
				RawValue:    n.RawValue,
				Score:       n.Score,
				EvaluatedAt: r.EvaluatedAt,
			})
		}
	}
	return rows
}
