package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Run is one batch conversion.
type Run struct {
	ID          int64
	StartedAt   string
	FinishedAt  string
	Root        string
	Mode        string
	OptionsHash string
	Files       int
	Converted   int
	Skipped     int
	Failed      int
}

// RunStats are the counters recorded when a run finishes.
type RunStats struct {
	Files     int
	Converted int
	Skipped   int
	Failed    int
}

// BeginRun records the start of a run and returns its id.
func (s *Store) BeginRun(root, mode, optionsHash string) (int64, error) {
	res, err := s.q.Exec(`INSERT INTO runs (started_at, root, mode, options_hash) VALUES (?, ?, ?, ?)`,
		Now(), root, mode, optionsHash)
	if err != nil {
		return 0, fmt.Errorf("begin run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun stores the final counters of a run.
func (s *Store) FinishRun(id int64, stats RunStats) error {
	res, err := s.q.Exec(`
		UPDATE runs SET finished_at=?, files=?, converted=?, skipped=?, failed=? WHERE id=?`,
		Now(), stats.Files, stats.Converted, stats.Skipped, stats.Failed, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: no run %d", id)
	}
	return nil
}

const runColumns = "id, started_at, finished_at, root, mode, options_hash, files, converted, skipped, failed"

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Root, &r.Mode, &r.OptionsHash,
		&r.Files, &r.Converted, &r.Skipped, &r.Failed)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRun returns a run by id, or nil when it does not exist.
func (s *Store) GetRun(id int64) (*Run, error) {
	r, err := scanRun(s.q.QueryRow("SELECT "+runColumns+" FROM runs WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var result []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// PruneRuns deletes all but the newest keep runs with their results (CASCADE).
func (s *Store) PruneRuns(keep int) (int64, error) {
	res, err := s.q.Exec(`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
