package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Status of one file in a run.
const (
	StatusConverted = "converted" // text changed
	StatusUnchanged = "unchanged"
	StatusSkipped   = "skipped" // incremental hit
	StatusFailed    = "failed"
)

// ErrorRecord is a construct the converter left for manual changes.
type ErrorRecord struct {
	Row    int
	RowTo  int
	Reason string
}

// FileResult is the outcome of one file in a run.
type FileResult struct {
	ID         int64
	RunID      int64
	Path       string
	Status     string
	InputHash  string
	OutputHash string
	Bindings   []string
	Warnings   int
	ElapsedMS  int64
	Message    string
	Errors     []ErrorRecord
}

// RecordResult inserts r and its error records. Call it inside
// WithTransaction to keep both in one commit.
func (s *Store) RecordResult(r *FileResult) error {
	_, err := s.q.Exec(`
		INSERT INTO file_results (run_id, path, status, input_hash, output_hash, bindings, warnings, elapsed_ms, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, path) DO UPDATE SET status=excluded.status, input_hash=excluded.input_hash,
			output_hash=excluded.output_hash, bindings=excluded.bindings, warnings=excluded.warnings,
			elapsed_ms=excluded.elapsed_ms, message=excluded.message`,
		r.RunID, r.Path, r.Status, r.InputHash, r.OutputHash, strings.Join(r.Bindings, ","),
		r.Warnings, r.ElapsedMS, r.Message)
	if err != nil {
		return fmt.Errorf("record result %s: %w", r.Path, err)
	}
	// LastInsertId is stale when the upsert took the update branch.
	var id int64
	if err := s.q.QueryRow("SELECT id FROM file_results WHERE run_id=? AND path=?", r.RunID, r.Path).Scan(&id); err != nil {
		return fmt.Errorf("result id %s: %w", r.Path, err)
	}
	r.ID = id
	if _, err := s.q.Exec("DELETE FROM errors WHERE result_id=?", id); err != nil {
		return fmt.Errorf("clear errors %s: %w", r.Path, err)
	}
	for _, e := range r.Errors {
		if _, err := s.q.Exec("INSERT INTO errors (result_id, row, row_to, reason) VALUES (?, ?, ?, ?)",
			id, e.Row, e.RowTo, e.Reason); err != nil {
			return fmt.Errorf("record error %s: %w", r.Path, err)
		}
	}
	return nil
}

const resultColumns = "id, run_id, path, status, input_hash, output_hash, bindings, warnings, elapsed_ms, message"

func scanResult(row interface{ Scan(...any) error }) (*FileResult, error) {
	var r FileResult
	var bindings string
	err := row.Scan(&r.ID, &r.RunID, &r.Path, &r.Status, &r.InputHash, &r.OutputHash,
		&bindings, &r.Warnings, &r.ElapsedMS, &r.Message)
	if err != nil {
		return nil, err
	}
	if bindings != "" {
		r.Bindings = strings.Split(bindings, ",")
	}
	return &r, nil
}

func (s *Store) loadErrors(r *FileResult) error {
	rows, err := s.q.Query("SELECT row, row_to, reason FROM errors WHERE result_id=? ORDER BY row, id", r.ID)
	if err != nil {
		return fmt.Errorf("load errors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e ErrorRecord
		if err := rows.Scan(&e.Row, &e.RowTo, &e.Reason); err != nil {
			return err
		}
		r.Errors = append(r.Errors, e)
	}
	return rows.Err()
}

// ResultsForRun returns the results of a run ordered by path, with their errors.
func (s *Store) ResultsForRun(runID int64) ([]*FileResult, error) {
	rows, err := s.q.Query("SELECT "+resultColumns+" FROM file_results WHERE run_id=? ORDER BY path", runID)
	if err != nil {
		return nil, fmt.Errorf("results for run: %w", err)
	}
	var result []*FileResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	for _, r := range result {
		if err := s.loadErrors(r); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// LatestResult returns the newest result recorded for path, or nil.
func (s *Store) LatestResult(path string) (*FileResult, error) {
	r, err := scanResult(s.q.QueryRow("SELECT "+resultColumns+" FROM file_results WHERE path=? ORDER BY id DESC LIMIT 1", path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest result: %w", err)
	}
	if err := s.loadErrors(r); err != nil {
		return nil, err
	}
	return r, nil
}
