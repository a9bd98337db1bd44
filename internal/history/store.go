// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records batch runs and their per-item outcomes in SQLite
// so past conversions can be listed and reported on.
//
// Implements: docs/ARCHITECTURE § Run History.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/xlsx2pdf/pkg/types"
)

const (
	dbFile            = "history.db"
	defaultMaxResults = 20
)

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Store manages the history database.
type Store struct {
	db         *sql.DB
	maxResults int
	now        func() time.Time
}

// NewStore opens or creates dir/history.db and its schema.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, maxResults: maxResults, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			output_dir TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			elapsed_ms INTEGER NOT NULL DEFAULT 0,
			total INTEGER NOT NULL,
			converted INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			input_path TEXT NOT NULL,
			output_path TEXT,
			status TEXT NOT NULL,
			error TEXT,
			PRIMARY KEY (run_id, idx)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// BeginRun records a new running batch with every input pending and
// returns its ID.
func (s *Store) BeginRun(ctx context.Context, outputDir string, paths []string) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, output_dir, status, started_at, total) VALUES (?, ?, ?, ?, ?)`,
		id, outputDir, string(types.RunRunning), formatTime(s.now()), len(paths),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (run_id, idx, input_path, status) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range paths {
		if _, err := stmt.ExecContext(ctx, id, i, p, string(types.ItemPending)); err != nil {
			return "", fmt.Errorf("inserting item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// Record applies one Worker event to the run. Starting events carry no
// outcome and are ignored; terminal events finish the run.
func (s *Store) Record(ctx context.Context, runID string, e types.Event) error {
	switch e.Kind {
	case types.EventProgress:
		return s.updateItem(ctx, runID, e.Index, types.ItemConverted, e.Output, "")
	case types.EventFailed:
		return s.updateItem(ctx, runID, e.Index, types.ItemFailed, "", e.ErrorText())
	case types.EventCompleted, types.EventCancelled, types.EventAborted:
		return s.FinishRun(ctx, runID, StatusFor(e), e.Elapsed, e.Summary)
	}
	return nil
}

// StatusFor maps a terminal event to the run status it records.
func StatusFor(e types.Event) types.RunStatus {
	switch e.Kind {
	case types.EventCompleted:
		if e.Cancelled {
			return types.RunCancelled
		}
		return types.RunCompleted
	case types.EventCancelled:
		return types.RunCancelled
	case types.EventAborted:
		return types.RunAborted
	}
	return types.RunRunning
}

func (s *Store) updateItem(ctx context.Context, runID string, index int, status types.ItemStatus, output, errText string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET status = ?, output_path = ?, error = ? WHERE run_id = ? AND idx = ?`,
		string(status), output, errText, runID, index,
	)
	if err != nil {
		return fmt.Errorf("updating item %d of run %s: %w", index, runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("item %d of run %s: %w", index, runID, ErrRunNotFound)
	}
	return nil
}

// FinishRun stores the final status, elapsed time, and counts of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, status types.RunStatus, elapsed time.Duration, summary types.RunSummary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, elapsed_ms = ?, converted = ?, failed = ? WHERE id = ?`,
		string(status), formatTime(s.now()), elapsed.Milliseconds(), summary.Converted, summary.Failed, runID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finishing run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first, without items.
// A non-positive limit uses the configured maximum.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]types.Run, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, output_dir, status, started_at, finished_at, elapsed_ms, total, converted, failed
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []types.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Run returns one run with its items.
func (s *Store) Run(ctx context.Context, runID string) (*types.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, output_dir, status, started_at, finished_at, elapsed_ms, total, converted, failed
		 FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}

	items, err := s.Items(ctx, runID)
	if err != nil {
		return nil, err
	}
	run.Items = items
	return &run, nil
}

// Items returns the per-item outcomes of a run in input order.
func (s *Store) Items(ctx context.Context, runID string) ([]types.ItemResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, input_path, COALESCE(output_path, ''), status, COALESCE(error, '')
		 FROM items WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []types.ItemResult
	for rows.Next() {
		var it types.ItemResult
		var status string
		if err := rows.Scan(&it.Index, &it.InputPath, &it.OutputPath, &status, &it.Error); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		it.Status = types.ItemStatus(status)
		items = append(items, it)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (types.Run, error) {
	var (
		run       types.Run
		status    string
		started   string
		finished  sql.NullString
		elapsedMS int64
	)
	err := sc.Scan(&run.ID, &run.OutputDir, &status, &started, &finished, &elapsedMS,
		&run.Summary.Total, &run.Summary.Converted, &run.Summary.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return run, err
	}
	if err != nil {
		return run, fmt.Errorf("scanning run: %w", err)
	}

	run.Status = types.RunStatus(status)
	run.StartedAt = parseTime(started)
	if finished.Valid {
		run.FinishedAt = parseTime(finished.String)
	}
	run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
