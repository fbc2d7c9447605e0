package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteCalibration outputs a calibration report, dispatching based on the output format configured.
func WriteCalibration(report *schema.CalibrationReport, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCalibrationCSV(w, report)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is not supported for calibration reports")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCalibrationText(w, report, fmtFloat, duration)
		}, "Wrote table")
	}
}

// writeCalibrationText renders thresholds and weights as two tables.
func writeCalibrationText(w io.Writer, report *schema.CalibrationReport, fmtFloat func(float64) string, duration time.Duration) error {
	if _, err := fmt.Fprintf(w, "📏 Thresholds\n"); err != nil {
		return err
	}
	thresholds := tablewriter.NewWriter(w)
	thresholds.Header([]string{"Measure", "Samples", "Thresholds"})
	thresholds.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for _, id := range slices.Sorted(maps.Keys(report.Thresholds)) {
		data = append(data, []string{
			id,
			strconv.Itoa(report.Samples[id]),
			joinFloats(report.Thresholds[id], fmtFloat, " "),
		})
	}
	if err := thresholds.Bulk(data); err != nil {
		return err
	}
	if err := thresholds.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "\n⚖️  Weights\n"); err != nil {
		return err
	}
	weights := tablewriter.NewWriter(w)
	weights.Header([]string{"Node", "Child", "Weight", "CR"})
	weights.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	data = nil
	for _, r := range sortedWeights(report.Weights) {
		for i, child := range r.Children {
			data = append(data, []string{r.NodeID, child, fmtFloat(r.Weights[i]), fmtFloat(r.ConsistencyRatio)})
		}
	}
	if err := weights.Bulk(data); err != nil {
		return err
	}
	if err := weights.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Calibrated %d measures over %d projects in %v (%d warnings, %d tool failures)\n",
		len(report.Thresholds), len(report.Projects), duration, len(report.Warnings), len(report.Failures)); err != nil {
		return err
	}
	if report.Output != "" {
		if _, err := fmt.Fprintf(w, "Model written to %s\n", report.Output); err != nil {
			return err
		}
	}
	return nil
}

// writeCalibrationCSV writes one row per threshold, sample count and weight.
func writeCalibrationCSV(w io.Writer, report *schema.CalibrationReport) error {
	return writeCSVWithHeader(w, []string{"section", "node", "key", "value"}, func(cw *csv.Writer) error {
		for _, id := range slices.Sorted(maps.Keys(report.Thresholds)) {
			if err := cw.Write([]string{"samples", id, "", strconv.Itoa(report.Samples[id])}); err != nil {
				return err
			}
			for i, t := range report.Thresholds[id] {
				if err := cw.Write([]string{"threshold", id, strconv.Itoa(i), strconv.FormatFloat(t, 'g', -1, 64)}); err != nil {
					return err
				}
			}
		}
		for _, r := range sortedWeights(report.Weights) {
			for i, child := range r.Children {
				if err := cw.Write([]string{"weight", r.NodeID, child, strconv.FormatFloat(r.Weights[i], 'g', -1, 64)}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func sortedWeights(results []schema.WeightResult) []schema.WeightResult {
	out := slices.Clone(results)
	slices.SortFunc(out, func(a, b schema.WeightResult) int {
		return strings.Compare(a.NodeID, b.NodeID)
	})
	return out
}

func joinFloats(values []float64, fmtFloat func(float64) string, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmtFloat(v)
	}
	return strings.Join(parts, sep)
}
