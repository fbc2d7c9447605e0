package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/schema"
)

// Table names for evaluation history.
const (
	evaluationRunsTable = "tqi_evaluation_runs"
	nodeScoresTable     = "tqi_node_scores"
)

// historyTables lists the history tables, parents first.
var historyTables = []string{evaluationRunsTable, nodeScoresTable}

// HistoryStoreImpl records evaluation runs and every node score they produce.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend.
// The none backend returns a store that records nothing.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (*HistoryStoreImpl, error) {
	if backend == schema.NoneBackend {
		return &HistoryStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, GetHistoryDBFilePath())
	if err != nil {
		return nil, err
	}
	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}
	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

// createHistoryTables creates the history tables when they are missing. The same
// statements back the first versioned migration.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	for _, table := range historyTables {
		if _, err := db.Exec(getCreateHistoryQuery(table, backend)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// getCreateHistoryQuery returns the CREATE TABLE query for a history table.
func getCreateHistoryQuery(table string, backend schema.DatabaseBackend) string {
	quoted := quoteTableName(table, backend)

	if table == evaluationRunsTable {
		switch backend {
		case schema.MySQLBackend:
			return fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
					model_name VARCHAR(255) NOT NULL,
					start_time DATETIME(6) NOT NULL,
					end_time DATETIME(6),
					run_duration_ms INT,
					total_projects_evaluated INT NOT NULL DEFAULT 0,
					config_params TEXT
				);
			`, quoted)
		case schema.PostgreSQLBackend:
			return fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					run_id BIGSERIAL PRIMARY KEY,
					model_name TEXT NOT NULL,
					start_time TIMESTAMPTZ NOT NULL,
					end_time TIMESTAMPTZ,
					run_duration_ms INT,
					total_projects_evaluated INT NOT NULL DEFAULT 0,
					config_params TEXT
				);
			`, quoted)
		default: // SQLite
			return fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					run_id INTEGER PRIMARY KEY AUTOINCREMENT,
					model_name TEXT NOT NULL,
					start_time TEXT NOT NULL,
					end_time TEXT,
					run_duration_ms INTEGER,
					total_projects_evaluated INTEGER NOT NULL DEFAULT 0,
					config_params TEXT
				);
			`, quoted)
		}
	}

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				project VARCHAR(255) NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				node_kind VARCHAR(32) NOT NULL,
				evaluated_at DATETIME(6) NOT NULL,
				raw_value DOUBLE,
				score DOUBLE NOT NULL,
				label VARCHAR(32) NOT NULL,
				PRIMARY KEY (run_id, project, node_id)
			);
		`, quoted)
	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				project TEXT NOT NULL,
				node_id TEXT NOT NULL,
				node_kind TEXT NOT NULL,
				evaluated_at TIMESTAMPTZ NOT NULL,
				raw_value DOUBLE PRECISION,
				score DOUBLE PRECISION NOT NULL,
				label TEXT NOT NULL,
				PRIMARY KEY (run_id, project, node_id)
			);
		`, quoted)
	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER NOT NULL,
				project TEXT NOT NULL,
				node_id TEXT NOT NULL,
				node_kind TEXT NOT NULL,
				evaluated_at TEXT NOT NULL,
				raw_value REAL,
				score REAL NOT NULL,
				label TEXT NOT NULL,
				PRIMARY KEY (run_id, project, node_id)
			);
		`, quoted)
	}
}

// BeginRun creates a new evaluation run and returns its unique ID. The none backend returns 0.
func (hs *HistoryStoreImpl) BeginRun(modelName string, startTime time.Time, configParams map[string]any) (int64, error) {
	if hs.db == nil {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quoted := quoteTableName(evaluationRunsTable, hs.backend)
	ph := placeholders(hs.backend, 3)
	query := fmt.Sprintf(`INSERT INTO %s (model_name, start_time, config_params) VALUES (%s)`, quoted, strings.Join(ph, ", "))
	args := []any{modelName, formatTime(startTime, hs.backend), string(configJSON)}

	var runID int64
	if hs.backend == schema.PostgreSQLBackend {
		err = hs.db.QueryRow(query+" RETURNING run_id", args...).Scan(&runID)
	} else {
		var result sql.Result
		result, err = hs.db.Exec(query, args...)
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert evaluation run: %w", err)
	}
	return runID, nil
}

// EndRun records the end time, duration and project count of a run.
func (hs *HistoryStoreImpl) EndRun(runID int64, endTime time.Time, totalProjects int) error {
	if hs.db == nil {
		return nil
	}

	quoted := quoteTableName(evaluationRunsTable, hs.backend)
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, quoted, placeholders(hs.backend, 1)[0])
	start := timeScanner{backend: hs.backend}
	if err := hs.db.QueryRow(query, runID).Scan(start.dest()); err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	startTime, err := start.value()
	if err != nil {
		return err
	}
	if startTime == nil {
		return fmt.Errorf("run %d has no start_time", runID)
	}

	ph := placeholders(hs.backend, 4)
	update := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, total_projects_evaluated = %s WHERE run_id = %s`,
		quoted, ph[0], ph[1], ph[2], ph[3])
	durationMs := endTime.Sub(*startTime).Milliseconds()
	if _, err := hs.db.Exec(update, formatTime(endTime, hs.backend), durationMs, totalProjects, runID); err != nil {
		return fmt.Errorf("failed to update evaluation run: %w", err)
	}
	return nil
}

// RecordNodeScores stores every node score of one project in a single transaction.
func (hs *HistoryStoreImpl) RecordNodeScores(runID int64, result schema.ProjectResult) error {
	if hs.db == nil {
		return nil
	}

	quoted := quoteTableName(nodeScoresTable, hs.backend)
	query := fmt.Sprintf(`INSERT INTO %s (run_id, project, node_id, node_kind, evaluated_at, raw_value, score, label) VALUES (%s)`,
		quoted, strings.Join(placeholders(hs.backend, 8), ", "))

	tx, err := hs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare node score insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	evaluatedAt := formatTime(result.EvaluatedAt, hs.backend)
	for _, n := range result.Nodes {
		var raw sql.NullFloat64
		if n.RawValue != nil {
			raw = sql.NullFloat64{Float64: *n.RawValue, Valid: true}
		}
		label := contract.GetPlainLabel(n.Score)
		if _, err := stmt.Exec(runID, result.Project, n.ID, string(n.Kind), evaluatedAt, raw, n.Score, label); err != nil {
			return fmt.Errorf("failed to insert score of %q for %s: %w", n.ID, result.Project, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit node scores: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.db == nil {
		return status, nil
	}

	runs := quoteTableName(evaluationRunsTable, hs.backend)
	query := fmt.Sprintf("SELECT COUNT(*), COALESCE(SUM(total_projects_evaluated), 0) FROM %s", runs)
	if err := hs.db.QueryRow(query).Scan(&status.TotalRuns, &status.TotalProjectsEvaluated); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		last := timeScanner{backend: hs.backend}
		query = fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", runs)
		if err := hs.db.QueryRow(query).Scan(&status.LastRunID, last.dest()); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		if t, err := last.value(); err != nil {
			return status, err
		} else if t != nil {
			status.LastRunTime = *t
		}

		oldest := timeScanner{backend: hs.backend}
		query = fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", runs)
		if err := hs.db.QueryRow(query).Scan(oldest.dest()); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		if t, err := oldest.value(); err != nil {
			return status, err
		} else if t != nil {
			status.OldestRunTime = *t
		}
	}

	for _, table := range historyTables {
		var count int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend))
		if err := hs.db.QueryRow(query).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// GetAllRuns retrieves every evaluation run ordered by id.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.EvaluationRunRecord, error) {
	if hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, model_name, start_time, end_time, run_duration_ms, total_projects_evaluated, config_params
		FROM %s ORDER BY run_id`, quoteTableName(evaluationRunsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluation runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.EvaluationRunRecord
	for rows.Next() {
		var (
			record     schema.EvaluationRunRecord
			start, end = timeScanner{backend: hs.backend}, timeScanner{backend: hs.backend}
		)
		if err := rows.Scan(&record.RunID, &record.ModelName, start.dest(), end.dest(),
			&record.RunDurationMs, &record.TotalProjectsEvaluated, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation run: %w", err)
		}
		startTime, err := start.value()
		if err != nil {
			return nil, err
		}
		if startTime != nil {
			record.StartTime = *startTime
		}
		if record.EndTime, err = end.value(); err != nil {
			return nil, err
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluation runs: %w", err)
	}
	return results, nil
}

// GetAllNodeScores retrieves every node score ordered by run, project and node.
func (hs *HistoryStoreImpl) GetAllNodeScores() ([]schema.NodeScoreRecord, error) {
	if hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, project, node_id, node_kind, evaluated_at, raw_value, score, label
		FROM %s ORDER BY run_id, project, node_id`, quoteTableName(nodeScoresTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query node scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.NodeScoreRecord
	for rows.Next() {
		var (
			record schema.NodeScoreRecord
			at     = timeScanner{backend: hs.backend}
			raw    sql.NullFloat64
		)
		if err := rows.Scan(&record.RunID, &record.Project, &record.NodeID, &record.NodeKind,
			at.dest(), &raw, &record.Score, &record.Label); err != nil {
			return nil, fmt.Errorf("failed to scan node score: %w", err)
		}
		evaluatedAt, err := at.value()
		if err != nil {
			return nil, err
		}
		if evaluatedAt != nil {
			record.EvaluatedAt = *evaluatedAt
		}
		if raw.Valid {
			v := raw.Float64
			record.RawValue = &v
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating node scores: %w", err)
	}
	return results, nil
}
