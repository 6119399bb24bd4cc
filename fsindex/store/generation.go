package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BeginGeneration opens a new indexing generation and returns its id. Any
// prior generation rows are dropped first; the catalog keeps no history, only
// the run currently materialized in the folder and file tables.
func (s *SQLStore) BeginGeneration(rootPath string) (uuid.UUID, error) {
	id := uuid.New()

	tx, err := s.db.Begin()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM generations"); err != nil {
		return uuid.Nil, fmt.Errorf("failed to drop prior generations: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT INTO generations (id, root_path, started_at) VALUES (?, ?, ?)",
		id.String(), rootPath, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert generation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit generation: %w", err)
	}
	return id, nil
}

// CompleteGeneration marks a generation as finished and records its final
// counts. A generation without a completed_at timestamp is a failed or
// interrupted run.
func (s *SQLStore) CompleteGeneration(id uuid.UUID, folders, files, warnings int64) error {
	result, err := s.db.Exec(
		`UPDATE generations
		 SET completed_at = ?, folder_count = ?, file_count = ?, warning_count = ?
		 WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), folders, files, warnings, id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to complete generation %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("generation %s not found", id)
	}
	return nil
}

// LatestGeneration returns the most recently started generation, or nil when
// the catalog has never been indexed.
func (s *SQLStore) LatestGeneration() (*Generation, error) {
	var (
		gen         Generation
		idStr       string
		startedAt   string
		completedAt sql.NullString
	)
	err := s.db.QueryRow(
		`SELECT id, root_path, started_at, completed_at, folder_count, file_count, warning_count
		 FROM generations ORDER BY started_at DESC LIMIT 1`,
	).Scan(&idStr, &gen.RootPath, &startedAt, &completedAt,
		&gen.FolderCount, &gen.FileCount, &gen.WarningCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest generation: %w", err)
	}

	gen.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt generation id %q: %w", idStr, err)
	}
	if gen.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return nil, fmt.Errorf("corrupt generation timestamp %q: %w", startedAt, err)
	}
	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt generation timestamp %q: %w", completedAt.String, err)
		}
		gen.CompletedAt = &t
	}
	return &gen, nil
}
