package schema

import (
	"maps"
	"slices"
	"sort"
	"time"
)

// Evaluation holds every node score computed for one project.
type Evaluation struct {
	TQI       float64             `json:"tqi"`
	Scores    map[string]float64  `json:"scores"`
	RawValues map[string]float64  `json:"raw_values"`
	Kinds     map[string]NodeKind `json:"kinds"`
	Warnings  []Warning           `json:"warnings,omitempty"`
}

// Score returns the score of a node, or false if it was never computed.
func (e *Evaluation) Score(id string) (float64, bool) {
	v, ok := e.Scores[id]
	return v, ok
}

// NodeScores flattens the evaluation into rows ordered root first, then by id.
func (e *Evaluation) NodeScores() []NodeScore {
	ids := slices.Collect(maps.Keys(e.Scores))
	sort.Slice(ids, func(i, j int) bool {
		ri, rj := KindRank(e.Kinds[ids[i]]), KindRank(e.Kinds[ids[j]])
		if ri != rj {
			return ri < rj
		}
		return ids[i] < ids[j]
	})

	rows := make([]NodeScore, 0, len(ids))
	for _, id := range ids {
		row := NodeScore{ID: id, Kind: e.Kinds[id], Score: e.Scores[id]}
		if raw, ok := e.RawValues[id]; ok {
			row.RawValue = &raw
		}
		rows = append(rows, row)
	}
	return rows
}

// NodeScore is the score of a single node in a result artifact.
type NodeScore struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Score    float64  `json:"score"`
	RawValue *float64 `json:"raw_value,omitempty"`
}

// ProjectResult is the artifact written for every evaluated project.
type ProjectResult struct {
	RunID       string      `json:"run_id"`
	Project     string      `json:"project"`
	Path        string      `json:"path"`
	Model       string      `json:"model"`
	TQI         float64     `json:"tqi"`
	Label       string      `json:"label"`
	Nodes       []NodeScore `json:"nodes"`
	Failures    []string    `json:"tool_failures,omitempty"`
	Warnings    []Warning   `json:"warnings,omitempty"`
	EvaluatedAt time.Time   `json:"evaluated_at"`
}

// EnrichedNodeScore adds presentation data to a NodeScore.
type EnrichedNodeScore struct {
	Rank  int    `json:"rank"`
	Label string `json:"label"`
	NodeScore
}

// WeightResult holds the weights elicited for one aggregation node.
// Weights[i] belongs to Children[i].
type WeightResult struct {
	NodeID           string    `json:"node_id"`
	Children         []string  `json:"children"`
	Weights          []float64 `json:"weights"`
	ConsistencyRatio float64   `json:"consistency_ratio"`
}

// ByChild keys the weights by child id.
func (w WeightResult) ByChild() map[string]float64 {
	out := make(map[string]float64, len(w.Children))
	for i, child := range w.Children {
		if i < len(w.Weights) {
			out[child] = w.Weights[i]
		}
	}
	return out
}

// CalibrationReport summarizes one calibration run.
type CalibrationReport struct {
	Model      string               `json:"model"`
	Projects   []string             `json:"projects"`
	Thresholds map[string][]float64 `json:"thresholds"`
	Samples    map[string]int       `json:"samples"`
	Weights    []WeightResult       `json:"weights"`
	Warnings   []Warning            `json:"warnings,omitempty"`
	Failures   []string             `json:"tool_failures,omitempty"`
	Output     string               `json:"output,omitempty"`
}
