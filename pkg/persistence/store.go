// Package persistence provides SQLite-based storage for execution records.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"opendev/pkg/logx"
	"opendev/pkg/orchestrator"
)

// CurrentSchemaVersion defines the schema version for migration support.
const CurrentSchemaVersion = 1

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store persists execution records. SQLite supports a single writer, so the
// connection pool is pinned to one connection.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open creates (or opens) the database at dbPath, creating parent directories
// and the schema as needed.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logger := logx.NewLogger("persistence")
	logger.Info("Database initialized: %s", dbPath)

	return &Store{db: db, logger: logger}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func initializeSchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, CurrentSchemaVersion)
	}
	if version == CurrentSchemaVersion {
		return nil
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS executions (
			id             TEXT PRIMARY KEY,
			request        TEXT NOT NULL,
			provider       TEXT NOT NULL,
			status         TEXT NOT NULL,
			plan_json      TEXT NOT NULL DEFAULT '[]',
			step_results   TEXT NOT NULL DEFAULT '[]',
			final_response TEXT NOT NULL DEFAULT '',
			error          TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMP NOT NULL,
			completed_at   TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_executions_created ON executions(created_at DESC);
	`); err != nil {
		return fmt.Errorf("failed to create executions table: %w", err)
	}

	if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, CurrentSchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// SaveExecution upserts the terminal (or in-flight) state of one request.
func (s *Store) SaveExecution(st *orchestrator.ExecutionState) error {
	planJSON, err := json.Marshal(st.Plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	resultsJSON, err := json.Marshal(st.StepResults)
	if err != nil {
		return fmt.Errorf("failed to marshal step results: %w", err)
	}

	var completedAt any
	if st.CompletedAt != nil {
		completedAt = st.CompletedAt.UTC()
	}

	_, err = s.db.Exec(`
		INSERT INTO executions (id, request, provider, status, plan_json, step_results, final_response, error, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			plan_json = excluded.plan_json,
			step_results = excluded.step_results,
			final_response = excluded.final_response,
			error = excluded.error,
			completed_at = excluded.completed_at`,
		st.ID, st.Request, st.Provider, string(st.Status),
		string(planJSON), string(resultsJSON), st.FinalResponse, st.Error,
		st.CreatedAt.UTC(), completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution %s: %w", st.ID, err)
	}
	return nil
}

// GetExecution loads one execution record by ID.
func (s *Store) GetExecution(id string) (*orchestrator.ExecutionState, error) {
	row := s.db.QueryRow(`
		SELECT id, request, provider, status, plan_json, step_results, final_response, error, created_at, completed_at
		FROM executions WHERE id = ?`, id)

	st, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("execution %s: %w", id, ErrNotFound)
	}
	return st, err
}

// ListExecutions returns the most recent executions, newest first.
func (s *Store) ListExecutions(limit int) ([]*orchestrator.ExecutionState, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, request, provider, status, plan_json, step_results, final_response, error, created_at, completed_at
		FROM executions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*orchestrator.ExecutionState
	for rows.Next() {
		st, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(row scanner) (*orchestrator.ExecutionState, error) {
	var (
		st          orchestrator.ExecutionState
		status      string
		planJSON    string
		resultsJSON string
		completedAt sql.NullTime
	)
	err := row.Scan(&st.ID, &st.Request, &st.Provider, &status, &planJSON, &resultsJSON,
		&st.FinalResponse, &st.Error, &st.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	st.Status = orchestrator.Status(status)
	if err := json.Unmarshal([]byte(planJSON), &st.Plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan for %s: %w", st.ID, err)
	}
	if err := json.Unmarshal([]byte(resultsJSON), &st.StepResults); err != nil {
		return nil, fmt.Errorf("failed to unmarshal step results for %s: %w", st.ID, err)
	}
	st.CurrentStepIndex = len(st.StepResults)
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		st.CompletedAt = &t
	}
	return &st, nil
}
