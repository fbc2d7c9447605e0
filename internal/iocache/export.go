package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/internal/parquet"
)

// Suffixes appended to the export base path.
const (
	runsExportSuffix   = ".evaluation_runs.parquet"
	scoresExportSuffix = ".node_scores.parquet"
)

// ExecuteHistoryExport exports the global history store to Parquet files.
func ExecuteHistoryExport(outputFile string, w io.Writer) error {
	return ExportHistory(Manager.GetHistoryStore(), outputFile, w)
}

// ExportHistory writes every run and node score of store to two Parquet files
// derived from outputFile, reporting progress to w.
func ExportHistory(store contract.HistoryStore, outputFile string, w io.Writer) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("history store is not initialized")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no evaluation history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total evaluation runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total node scores: %d\n", status.TableSizes[nodeScoresTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve evaluation runs: %w", err)
	}
	scores, err := store.GetAllNodeScores()
	if err != nil {
		return fmt.Errorf("failed to retrieve node scores: %w", err)
	}

	runsFile := outputFile + runsExportSuffix
	parquetRuns := parquet.ConvertEvaluationRunRecords(runs)
	if err := parquet.WriteEvaluationRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write evaluation runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d evaluation runs to: %s\n", len(parquetRuns), runsFile)

	scoresFile := outputFile + scoresExportSuffix
	parquetScores := parquet.ConvertNodeScoreRecords(scores)
	if err := parquet.WriteNodeScoresParquet(parquetScores, scoresFile); err != nil {
		return fmt.Errorf("failed to write node scores: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d node scores to: %s\n", len(parquetScores), scoresFile)
	return nil
}
