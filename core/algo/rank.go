package algo

import (
	"sort"

	"github.com/huangsam/tqi/schema"
)

// RankWeakest sorts node scores in ascending order so the nodes dragging the
// index down come first, and returns the top 'limit' rows. Ties break on id.
func RankWeakest(rows []schema.NodeScore, limit int) []schema.NodeScore {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score < rows[j].Score
		}
		return rows[i].ID < rows[j].ID
	})
	if len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

// RankProjects sorts project results by TQI in descending order
// and returns the top 'limit' results. If limit is greater than the number
// of results, all results are returned in sorted order.
func RankProjects(results []schema.ProjectResult, limit int) []schema.ProjectResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].TQI != results[j].TQI {
			return results[i].TQI > results[j].TQI
		}
		return results[i].Project < results[j].Project
	})
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
