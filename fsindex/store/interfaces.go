package store

import (
	"time"

	"github.com/google/uuid"
)

// Folder is one directory row in the catalog. ParentID is nil only for the
// scan root.
type Folder struct {
	ID       int64
	ParentID *int64
	Name     string
	Path     string
}

// FileRecord is one file row, owned by exactly one Folder. The absolute path
// of a file is derived as Folder.Path joined with Name and is never stored.
type FileRecord struct {
	FolderID int64
	Name     string
	Size     int64
	ModTime  time.Time
}

// SearchHit is a matched file together with its owning folder's path.
type SearchHit struct {
	Name       string
	FolderPath string
}

// Generation records one complete indexing run. CompletedAt stays nil until
// the run finishes, so a half-built catalog is always distinguishable from a
// finished one.
type Generation struct {
	ID           uuid.UUID
	RootPath     string
	StartedAt    time.Time
	CompletedAt  *time.Time
	FolderCount  int64
	FileCount    int64
	WarningCount int64
}

// IndexStore is the interface for catalog persistence. The indexing pipeline
// and the search engine are written against this abstraction so tests can run
// on a throwaway database file.
type IndexStore interface {
	Close() error

	// Folder operations (phase 2)
	InsertFolder(parentID *int64, name, path string) (int64, error)
	AllFolders() ([]Folder, error)
	FolderCount() (int64, error)

	// File operations (phases 3-4)
	BulkInsertFiles(records []FileRecord) error
	DeleteFilesForFolders(folderIDs []int64) (int64, error)
	FileCount() (int64, error)

	// Search primitives
	FilesByNamePrefix(prefix string, limit int) ([]SearchHit, error)
	FilesByNamePattern(likePattern string, limit int) ([]SearchHit, error)

	// Generation lifecycle
	BeginGeneration(rootPath string) (uuid.UUID, error)
	CompleteGeneration(id uuid.UUID, folders, files, warnings int64) error
	LatestGeneration() (*Generation, error)

	// Reset wipes all catalog rows ahead of a fresh full run.
	Reset() error
}
