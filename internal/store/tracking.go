package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"go-db-replicator/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

var trackingDB *sql.DB

// InitTracking opens the run-history database and creates its tables.
func InitTracking(dbPath string) error {
	var err error
	trackingDB, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	runTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		action TEXT,
		trigger_kind TEXT,
		status TEXT,
		started_at DATETIME,
		finished_at DATETIME
	);
	`
	resultTable := `
	CREATE TABLE IF NOT EXISTS run_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		table_name TEXT,
		success INTEGER,
		skipped INTEGER,
		rows INTEGER,
		artifacts TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`
	errorTable := `
	CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`

	for _, q := range []string{runTable, resultTable, errorTable} {
		if _, err := trackingDB.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// CloseTracking closes the run-history database.
func CloseTracking() error {
	if trackingDB == nil {
		return nil
	}
	err := trackingDB.Close()
	trackingDB = nil
	return err
}

// SaveRun records a new run in the history.
func SaveRun(runID string, action model.TriggerAction, triggerKind string) error {
	if trackingDB == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := trackingDB.Exec(`INSERT INTO runs (id, action, trigger_kind, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		runID, string(action), triggerKind, "running", now)
	return err
}

// UpdateRunStatus updates a run's status.
func UpdateRunStatus(runID string, status string) error {
	if trackingDB == nil {
		return nil
	}
	_, err := trackingDB.Exec(`UPDATE runs SET status = ? WHERE id = ?`, status, runID)
	return err
}

// FinishRun marks a run finished with its terminal status.
func FinishRun(runID string, status string) error {
	if trackingDB == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := trackingDB.Exec(`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`, status, now, runID)
	return err
}

// SaveTableResult records one table's outcome within a run.
func SaveTableResult(runID string, res model.TableResult) error {
	if trackingDB == nil {
		return nil
	}
	artifacts := ""
	if len(res.Artifacts) > 0 {
		b, err := json.Marshal(res.Artifacts)
		if err == nil {
			artifacts = string(b)
		}
	}
	now := time.Now().UTC()
	_, err := trackingDB.Exec(`INSERT INTO run_results (run_id, table_name, success, skipped, rows, artifacts, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.Table, res.Success, res.Skipped, res.Rows, artifacts, res.Error, now)
	return err
}

// SaveRunError records a run-level error.
func SaveRunError(runID string, err error) error {
	if err == nil || trackingDB == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := trackingDB.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, err.Error(), now)
	return e
}

// ListRuns returns all runs, newest first.
func ListRuns() ([]map[string]interface{}, error) {
	rows, err := trackingDB.Query(`SELECT id, action, trigger_kind, status, started_at, finished_at FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []map[string]interface{}
	for rows.Next() {
		var id, action, triggerKind, status string
		var startedAt time.Time
		var finishedAt sql.NullTime
		if err := rows.Scan(&id, &action, &triggerKind, &status, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		run := map[string]interface{}{
			"id":        id,
			"action":    action,
			"trigger":   triggerKind,
			"status":    status,
			"startedAt": startedAt,
		}
		if finishedAt.Valid {
			run["finishedAt"] = finishedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches one run's summary.
func GetRun(runID string) (map[string]interface{}, error) {
	var action, triggerKind, status string
	var startedAt time.Time
	var finishedAt sql.NullTime

	err := trackingDB.QueryRow(`SELECT action, trigger_kind, status, started_at, finished_at FROM runs WHERE id = ?`, runID).
		Scan(&action, &triggerKind, &status, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	run := map[string]interface{}{
		"id":        runID,
		"action":    action,
		"trigger":   triggerKind,
		"status":    status,
		"startedAt": startedAt,
	}
	if finishedAt.Valid {
		run["finishedAt"] = finishedAt.Time
	}
	return run, nil
}

// GetRunResults returns the per-table outcomes of a run.
func GetRunResults(runID string) ([]model.TableResult, error) {
	rows, err := trackingDB.Query(`SELECT table_name, success, skipped, rows, artifacts, error_message FROM run_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.TableResult
	for rows.Next() {
		var res model.TableResult
		var artifacts string
		if err := rows.Scan(&res.Table, &res.Success, &res.Skipped, &res.Rows, &artifacts, &res.Error); err != nil {
			return nil, err
		}
		if artifacts != "" {
			_ = json.Unmarshal([]byte(artifacts), &res.Artifacts)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// GetRunErrors returns the run-level errors of a run.
func GetRunErrors(runID string) ([]map[string]interface{}, error) {
	rows, err := trackingDB.Query(`SELECT error_message, created_at FROM run_errors WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var errs []map[string]interface{}
	for rows.Next() {
		var msg string
		var createdAt time.Time
		if err := rows.Scan(&msg, &createdAt); err != nil {
			return nil, err
		}
		errs = append(errs, map[string]interface{}{
			"error":     msg,
			"createdAt": createdAt,
		})
	}
	return errs, rows.Err()
}
