package schema

import "time"

// EvaluationRunRecord represents a row from the tqi_evaluation_runs table.
type EvaluationRunRecord struct {
	RunID                  int64
	ModelName              string
	StartTime              time.Time
	EndTime                *time.Time
	RunDurationMs          *int32
	TotalProjectsEvaluated int32
	ConfigParams           *string
}

// NodeScoreRecord represents a row from the tqi_node_scores table.
type NodeScoreRecord struct {
	RunID       int64
	Project     string
	NodeID      string
	NodeKind    string
	EvaluatedAt time.Time
	RawValue    *float64
	Score       float64
	Label       string
}
