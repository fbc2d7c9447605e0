package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/internal/parquet"
	"github.com/huangsam/tqi/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteEvaluation outputs the result of a single project. Weakest measures are included
// when the caller asked for an explanation.
func WriteEvaluation(result schema.ProjectResult, weakest []schema.EnrichedNodeScore, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, struct {
				schema.ProjectResult
				Weakest []schema.EnrichedNodeScore `json:"weakest,omitempty"`
			}{result, weakest})
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeNodeScoresCSV(w, []schema.ProjectResult{result}, fmtFloat)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return writeBinaryFile(cfg.OutputFile, func(w io.Writer) error {
			return parquet.WriteResultNodes(w, parquet.FlattenResults([]schema.ProjectResult{result}))
		}, "Wrote Parquet")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeEvaluationText(w, result, weakest, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
}

// WriteBatch outputs ranked project results from a batch evaluation.
func WriteBatch(results []schema.ProjectResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBatchJSON(w, results)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBatchCSV(w, results, fmtFloat)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return writeBinaryFile(cfg.OutputFile, func(w io.Writer) error {
			return parquet.WriteResultNodes(w, parquet.FlattenResults(results))
		}, "Wrote Parquet")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBatchTable(w, results, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
}

// writeEvaluationText renders every node score, then the weakest measures.
func writeEvaluationText(w io.Writer, result schema.ProjectResult, weakest []schema.EnrichedNodeScore, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	if _, err := fmt.Fprintf(w, "🏁 TQI for %s: %s (%s)\n", result.Project, fmtFloat(result.TQI), labelFor(result.TQI, cfg)); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Node", "Kind", "Score", "Raw", "Label"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	width := getMaxTableNameWidth(cfg, rankScoreLabelWidth+kindRawWidth)
	var data [][]string
	for _, n := range result.Nodes {
		data = append(data, []string{
			contract.TruncatePath(indentNode(n), width),
			string(n.Kind),
			fmtFloat(n.Score),
			fmtOptional(n.RawValue, fmtFloat),
			labelFor(n.Score, cfg),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(weakest) > 0 {
		if _, err := fmt.Fprintf(w, "\n🔻 Weakest measures\n"); err != nil {
			return err
		}
		explain := tablewriter.NewWriter(w)
		explain.Header([]string{"Rank", "Measure", "Score", "Raw", "Label"})
		explain.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignRight
		})
		data = nil
		for _, n := range weakest {
			data = append(data, []string{
				strconv.Itoa(n.Rank),
				contract.TruncatePath(n.ID, width),
				fmtFloat(n.Score),
				fmtOptional(n.RawValue, fmtFloat),
				labelFor(n.Score, cfg),
			})
		}
		if err := explain.Bulk(data); err != nil {
			return err
		}
		if err := explain.Render(); err != nil {
			return err
		}
	}

	if len(result.Failures) > 0 {
		if _, err := fmt.Fprintf(w, "Tool failures: %s\n", strings.Join(result.Failures, "; ")); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Evaluated with model %s in %v with %d workers. Cache backend: %s\n", result.Model, duration, cfg.Workers, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}

// indentNode shifts lower layers right so the hierarchy reads top-down.
func indentNode(n schema.NodeScore) string {
	return strings.Repeat("  ", schema.KindRank(n.Kind)) + n.ID
}

// writeBatchTable renders one row per project in rank order.
func writeBatchTable(w io.Writer, results []schema.ProjectResult, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Project", "TQI", "Label", "Failures", "Warnings"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	width := getMaxTableNameWidth(cfg, rankScoreLabelWidth+warningsWidth)
	var data [][]string
	for i, r := range results {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			contract.TruncatePath(r.Path, width),
			fmtFloat(r.TQI),
			labelFor(r.TQI, cfg),
			strconv.Itoa(len(r.Failures)),
			strconv.Itoa(len(r.Warnings)),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Showing top %d projects\n", len(results)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Evaluation completed in %v with %d workers. Cache backend: %s\n", duration, cfg.Workers, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}

// writeBatchJSON adds rank and label to each project result.
func writeBatchJSON(w io.Writer, results []schema.ProjectResult) error {
	type JSONProjectResult struct {
		Rank int `json:"rank"`
		schema.ProjectResult
	}

	output := make([]JSONProjectResult, len(results))
	for i, r := range results {
		output[i] = JSONProjectResult{Rank: i + 1, ProjectResult: r}
	}
	return writeJSON(w, output)
}

// writeBatchCSV writes one summary row per project.
func writeBatchCSV(w io.Writer, results []schema.ProjectResult, fmtFloat func(float64) string) error {
	header := []string{"rank", "project", "path", "model", "tqi", "label", "tool_failures", "warnings", "evaluated_at"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, r := range results {
			rec := []string{
				strconv.Itoa(i + 1),
				r.Project,
				r.Path,
				r.Model,
				fmtFloat(r.TQI),
				contract.GetPlainLabel(r.TQI),
				strconv.Itoa(len(r.Failures)),
				strconv.Itoa(len(r.Warnings)),
				r.EvaluatedAt.Format(contract.DateTimeFormat),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeNodeScoresCSV writes one row per (project, node).
func writeNodeScoresCSV(w io.Writer, results []schema.ProjectResult, fmtFloat func(float64) string) error {
	header := []string{"project", "node", "kind", "score", "raw_value", "label"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range results {
			for _, n := range r.Nodes {
				raw := ""
				if n.RawValue != nil {
					raw = fmtFloat(*n.RawValue)
				}
				rec := []string{r.Project, n.ID, string(n.Kind), fmtFloat(n.Score), raw, contract.GetPlainLabel(n.Score)}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
