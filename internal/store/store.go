package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/kudos4me/internal/types"
)

// Store keeps the history of kudos runs
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		own_profile_id TEXT,
		session_resumed BOOLEAN,
		relogged BOOLEAN,
		entries_found INTEGER,
		entries_processed INTEGER,
		budget_exhausted BOOLEAN,
		given INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS entries (
		run_id TEXT NOT NULL REFERENCES runs(id),
		idx INTEGER NOT NULL,
		kind TEXT NOT NULL,
		given INTEGER NOT NULL,
		participants TEXT,
		PRIMARY KEY (run_id, idx)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun inserts or replaces a run together with its entry reports
func (s *Store) SaveRun(r *types.RunResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, started_at, finished_at, own_profile_id, session_resumed,
			relogged, entries_found, entries_processed, budget_exhausted, given)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			own_profile_id = excluded.own_profile_id,
			relogged = excluded.relogged,
			entries_found = excluded.entries_found,
			entries_processed = excluded.entries_processed,
			budget_exhausted = excluded.budget_exhausted,
			given = excluded.given
	`, r.ID, r.StartedAt, r.FinishedAt, r.OwnProfileID, r.SessionResumed,
		r.Relogged, r.EntriesFound, r.EntriesProcessed, r.BudgetExhausted, r.Given)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM entries WHERE run_id = ?`, r.ID); err != nil {
		return err
	}

	for _, e := range r.Entries {
		participantsJSON, err := json.Marshal(e.Participants)
		if err != nil {
			return fmt.Errorf("failed to encode participants of entry %d: %w", e.Index, err)
		}
		_, err = tx.Exec(`
			INSERT INTO entries (run_id, idx, kind, given, participants)
			VALUES (?, ?, ?, ?, ?)
		`, r.ID, e.Index, string(e.Kind), e.Given, string(participantsJSON))
		if err != nil {
			return fmt.Errorf("failed to save entry %d: %w", e.Index, err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns the latest runs, newest first. Entry reports are not loaded.
func (s *Store) RecentRuns(limit int) ([]types.RunResult, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, own_profile_id, session_resumed,
			relogged, entries_found, entries_processed, budget_exhausted, given
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []types.RunResult
	for rows.Next() {
		var r types.RunResult
		var finished sql.NullTime
		var ownID sql.NullString

		err := rows.Scan(&r.ID, &r.StartedAt, &finished, &ownID, &r.SessionResumed,
			&r.Relogged, &r.EntriesFound, &r.EntriesProcessed, &r.BudgetExhausted, &r.Given)
		if err != nil {
			return nil, err
		}
		r.FinishedAt = finished.Time
		r.OwnProfileID = ownID.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunEntries loads the entry reports stored for a run
func (s *Store) RunEntries(runID string) ([]types.EntryReport, error) {
	rows, err := s.db.Query(`
		SELECT idx, kind, given, participants
		FROM entries
		WHERE run_id = ?
		ORDER BY idx
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []types.EntryReport
	for rows.Next() {
		var e types.EntryReport
		var kind string
		var participantsJSON sql.NullString

		if err := rows.Scan(&e.Index, &kind, &e.Given, &participantsJSON); err != nil {
			return nil, err
		}
		e.Kind = types.EntryKind(kind)
		if participantsJSON.Valid {
			if err := json.Unmarshal([]byte(participantsJSON.String), &e.Participants); err != nil {
				return nil, fmt.Errorf("failed to decode participants of entry %d: %w", e.Index, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TotalGiven sums kudos over all runs started at or after since
func (s *Store) TotalGiven(since time.Time) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(`SELECT SUM(given) FROM runs WHERE started_at >= ?`, since).Scan(&total)
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}
