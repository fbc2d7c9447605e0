package core

import (
	"slices"

	"github.com/huangsam/tqi/core/algo"
	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/schema"
)

// WeakestMeasures ranks a project's measures from lowest to highest score and returns
// the top 'limit' with their labels. It backs the explain output.
func WeakestMeasures(result schema.ProjectResult, limit int) []schema.EnrichedNodeScore {
	measures := make([]schema.NodeScore, 0, len(result.Nodes))
	for _, n := range result.Nodes {
		if n.Kind == schema.MeasureKind {
			measures = append(measures, n)
		}
	}
	ranked := algo.RankWeakest(slices.Clone(measures), limit)

	out := make([]schema.EnrichedNodeScore, len(ranked))
	for i, n := range ranked {
		out[i] = schema.EnrichedNodeScore{
			Rank:      i + 1,
			Label:     contract.GetPlainLabel(n.Score),
			NodeScore: n,
		}
	}
	return out
}
