package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// FileHash is the last conversion of a path: the hash of the text read, the
// hash of the text produced, and the options it ran with.
type FileHash struct {
	Path        string
	OptionsHash string
	InputHash   string
	OutputHash  string
	UpdatedAt   string
}

// UpsertFileHash stores the latest hashes of a path.
func (s *Store) UpsertFileHash(h FileHash) error {
	_, err := s.q.Exec(`
		INSERT INTO file_hashes (path, options_hash, input_hash, output_hash, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET options_hash=excluded.options_hash, input_hash=excluded.input_hash,
			output_hash=excluded.output_hash, updated_at=excluded.updated_at`,
		h.Path, h.OptionsHash, h.InputHash, h.OutputHash, Now())
	if err != nil {
		return fmt.Errorf("upsert file hash: %w", err)
	}
	return nil
}

// GetFileHash returns the stored hashes of path, or nil when none exist.
func (s *Store) GetFileHash(path string) (*FileHash, error) {
	var h FileHash
	err := s.q.QueryRow("SELECT path, options_hash, input_hash, output_hash, updated_at FROM file_hashes WHERE path=?", path).
		Scan(&h.Path, &h.OptionsHash, &h.InputHash, &h.OutputHash, &h.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file hash: %w", err)
	}
	return &h, nil
}

// Unchanged reports whether a file with content hash inputHash needs no work
// under optionsHash: it was converted before with the same options and it
// still holds either the text that was read or the text that was written.
func (s *Store) Unchanged(path, optionsHash, inputHash string) (bool, error) {
	h, err := s.GetFileHash(path)
	if err != nil || h == nil {
		return false, err
	}
	if h.OptionsHash != optionsHash {
		return false, nil
	}
	return inputHash == h.InputHash || inputHash == h.OutputHash, nil
}

// DeleteFileHash forgets path.
func (s *Store) DeleteFileHash(path string) error {
	_, err := s.q.Exec("DELETE FROM file_hashes WHERE path=?", path)
	return err
}
