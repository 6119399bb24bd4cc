package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/go-libsql"
)

// SQLStore persists the filesystem catalog in a libsql/SQLite database.
type SQLStore struct {
	db  *sql.DB
	dsn string
}

var _ IndexStore = (*SQLStore)(nil)

// Open opens or initializes the catalog database at the given DSN.
// File-backed DSNs use the form "file:/path/to/catalog.db"; the parent
// directory is created if missing.
func Open(dsn string) (*SQLStore, error) {
	if path, ok := strings.CutPrefix(dsn, "file:"); ok && !strings.HasPrefix(path, ":memory:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("could not create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	// busy_timeout must come first so the remaining pragmas wait on locks.
	// Pragmas return a result row, and the libsql driver rejects Exec for
	// statements that return rows, so they go through Query.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		rows, err := db.Query(pragma)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
		if err := rows.Close(); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	s := &SQLStore{db: db, dsn: dsn}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("Catalog database ready", "dsn", dsn)
	return s, nil
}

// init sets up the catalog tables.
func (s *SQLStore) init() error {
	createTables := []string{
		`CREATE TABLE IF NOT EXISTS folders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			parent_id INTEGER REFERENCES folders(id),
			name TEXT NOT NULL,
			path TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			folder_id INTEGER NOT NULL REFERENCES folders(id),
			name TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			mtime INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS generations (
			id TEXT PRIMARY KEY,
			root_path TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			completed_at DATETIME,
			folder_count INTEGER NOT NULL DEFAULT 0,
			file_count INTEGER NOT NULL DEFAULT 0,
			warning_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_folders_name ON folders(name COLLATE NOCASE)`,
		`CREATE INDEX IF NOT EXISTS idx_files_name ON files(name COLLATE NOCASE)`,
		`CREATE INDEX IF NOT EXISTS idx_files_folder ON files(folder_id)`,
	}
	for _, query := range createTables {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create catalog schema: %w", err)
		}
	}
	return nil
}

// Close closes the catalog database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// InsertFolder persists one folder row and returns its assigned identifier.
func (s *SQLStore) InsertFolder(parentID *int64, name, path string) (int64, error) {
	var parent sql.NullInt64
	if parentID != nil {
		parent = sql.NullInt64{Int64: *parentID, Valid: true}
	}

	result, err := s.db.Exec(
		"INSERT INTO folders (parent_id, name, path) VALUES (?, ?, ?)",
		parent, name, path,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert folder %s: %w", path, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get folder id for %s: %w", path, err)
	}
	return id, nil
}

// AllFolders returns every folder row, parents before children so a prior
// generation's tree can be re-walked in insertion order.
func (s *SQLStore) AllFolders() ([]Folder, error) {
	rows, err := s.db.Query("SELECT id, parent_id, name, path FROM folders ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	var folders []Folder
	for rows.Next() {
		var f Folder
		var parent sql.NullInt64
		if err := rows.Scan(&f.ID, &parent, &f.Name, &f.Path); err != nil {
			return nil, fmt.Errorf("failed to scan folder row: %w", err)
		}
		if parent.Valid {
			pid := parent.Int64
			f.ParentID = &pid
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// FolderCount returns the number of folder rows in the catalog.
func (s *SQLStore) FolderCount() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM folders").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count folders: %w", err)
	}
	return n, nil
}

// BulkInsertFiles inserts all records in a single transaction. Callers chunk
// records into batches; a failure here means the whole batch failed.
func (s *SQLStore) BulkInsertFiles(records []FileRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be a no-op if transaction is committed

	stmt, err := tx.Prepare("INSERT INTO files (folder_id, name, size, mtime) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare file insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(rec.FolderID, rec.Name, rec.Size, rec.ModTime.Unix()); err != nil {
			return fmt.Errorf("failed to insert file %s (folder %d): %w", rec.Name, rec.FolderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit file batch: %w", err)
	}
	return nil
}

// DeleteFilesForFolders removes every file row owned by the given folders and
// returns the number of rows deleted. Used to supersede a prior generation's
// files ahead of a re-index pass.
func (s *SQLStore) DeleteFilesForFolders(folderIDs []int64) (int64, error) {
	if len(folderIDs) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(folderIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(folderIDs))
	for i, id := range folderIDs {
		args[i] = id
	}

	result, err := s.db.Exec(
		"DELETE FROM files WHERE folder_id IN ("+placeholders+")", args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete superseded files: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// FileCount returns the number of file rows in the catalog.
func (s *SQLStore) FileCount() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return n, nil
}

// FilesByNamePrefix matches files whose name begins with prefix, using the
// case-insensitive name index. LIKE metacharacters inside prefix are escaped
// so the prefix is matched literally.
func (s *SQLStore) FilesByNamePrefix(prefix string, limit int) ([]SearchHit, error) {
	return s.queryHits(EscapeLike(prefix)+"%", limit)
}

// FilesByNamePattern evaluates a pre-built LIKE pattern against every file
// row. The pattern must already have literal metacharacters escaped.
func (s *SQLStore) FilesByNamePattern(likePattern string, limit int) ([]SearchHit, error) {
	return s.queryHits(likePattern, limit)
}

func (s *SQLStore) queryHits(likePattern string, limit int) ([]SearchHit, error) {
	rows, err := s.db.Query(
		`SELECT f.name, d.path
		 FROM files f JOIN folders d ON f.folder_id = d.id
		 WHERE f.name LIKE ? ESCAPE '\'
		 LIMIT ?`,
		likePattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.Name, &h.FolderPath); err != nil {
			return nil, fmt.Errorf("failed to scan search hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Reset wipes all catalog rows so a fresh full run replaces the prior
// generation instead of accumulating alongside it.
func (s *SQLStore) Reset() error {
	for _, query := range []string{
		"DELETE FROM files",
		"DELETE FROM folders",
		"DELETE FROM generations",
	} {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to reset catalog: %w", err)
		}
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE metacharacters so literal text matches literally.
// The backslash is the ESCAPE character used by every catalog query.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
