package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/huangsam/tqi/core/model"
	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteModel prints the shape of a model document: node counts per kind, then every node
// with its edges and, when calibrated, its thresholds or weights.
func WriteModel(doc *model.Document, summary map[schema.NodeKind]int, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, doc)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeModelCSV(w, doc)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is not supported for model documents")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeModelText(w, doc, summary, fmtFloat)
		}, "Wrote text")
	}
}

// isCalibrated reports whether any node of the document carries calibration data.
func isCalibrated(doc *model.Document) bool {
	return slices.ContainsFunc(doc.Nodes, func(n model.NodeDocument) bool {
		return len(n.Thresholds) > 0 || len(n.Weights) > 0
	})
}

// sortedNodes lists nodes root first, then by id.
func sortedNodes(doc *model.Document) []model.NodeDocument {
	nodes := slices.Clone(doc.Nodes)
	slices.SortStableFunc(nodes, func(a, b model.NodeDocument) int {
		if ra, rb := schema.KindRank(a.Kind), schema.KindRank(b.Kind); ra != rb {
			return ra - rb
		}
		return strings.Compare(a.ID, b.ID)
	})
	return nodes
}

func writeModelText(w io.Writer, doc *model.Document, summary map[schema.NodeKind]int, fmtFloat func(float64) string) error {
	state := "description"
	if isCalibrated(doc) {
		state = "calibrated"
	}
	if _, err := fmt.Fprintf(w, "📦 Model: %s (%s)\n", doc.Name, state); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "   %d tqi, %d quality aspects, %d product factors, %d measures\n\n",
		summary[schema.TQIKind], summary[schema.QualityAspectKind], summary[schema.ProductFactorKind], summary[schema.MeasureKind]); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Node", "Kind", "Inputs", "Calibration"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})
	var data [][]string
	for _, n := range sortedNodes(doc) {
		data = append(data, []string{n.ID, string(n.Kind), nodeInputs(n), nodeCalibration(n, fmtFloat)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// nodeInputs is the children of an aggregate or the diagnostics of a measure.
func nodeInputs(n model.NodeDocument) string {
	if n.Kind != schema.MeasureKind {
		return strings.Join(n.Children, ", ")
	}
	in := strings.Join(n.Diagnostics, ", ")
	if n.NormalizeBy != "" {
		in += " / " + n.NormalizeBy
	}
	if n.Positive {
		in += " (+)"
	}
	return in
}

func nodeCalibration(n model.NodeDocument, fmtFloat func(float64) string) string {
	if len(n.Thresholds) > 0 {
		return "[" + joinFloats(n.Thresholds, fmtFloat, ", ") + "]"
	}
	parts := make([]string, 0, len(n.Weights))
	for _, child := range slices.Sorted(maps.Keys(n.Weights)) {
		parts = append(parts, fmt.Sprintf("%s=%s", child, fmtFloat(n.Weights[child])))
	}
	return strings.Join(parts, " ")
}

func writeModelCSV(w io.Writer, doc *model.Document) error {
	header := []string{"id", "kind", "children", "diagnostics", "positive", "normalize_by", "thresholds", "weights"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		exact := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
		for _, n := range sortedNodes(doc) {
			weights := make([]string, 0, len(n.Weights))
			for _, child := range slices.Sorted(maps.Keys(n.Weights)) {
				weights = append(weights, child+"="+exact(n.Weights[child]))
			}
			rec := []string{
				n.ID,
				string(n.Kind),
				strings.Join(n.Children, "|"),
				strings.Join(n.Diagnostics, "|"),
				strconv.FormatBool(n.Positive),
				n.NormalizeBy,
				joinFloats(n.Thresholds, exact, "|"),
				strings.Join(weights, "|"),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
