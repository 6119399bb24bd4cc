package scan

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/fsindex/fsindex/sanitize"
	"github.com/ZanzyTHEbar/fsindex/fsindex/store"

	"github.com/armon/go-radix"
)

// FolderIndexer persists collected directories as folder rows and resolves
// each folder's parent identifier from path structure. This phase is
// deliberately single-threaded: parent resolution is ordering-sensitive
// shared state, and folder counts are orders of magnitude smaller than file
// counts, so parallelism would buy nothing.
type FolderIndexer struct {
	store store.IndexStore
	paths *radix.Tree // path -> folder id, built incrementally
}

// NewFolderIndexer creates a folder indexer writing to the given store.
func NewFolderIndexer(st store.IndexStore) *FolderIndexer {
	return &FolderIndexer{
		store: st,
		paths: radix.New(),
	}
}

// IndexFolders inserts every directory as a folder row, parents first, and
// returns the persisted folders carrying their assigned identifiers and raw
// on-disk paths for the scan phase. Directories are depth-sorted before
// insertion so the parent of each directory already has an identifier when
// the directory itself is inserted, regardless of input order. The scan root
// gets a nil parent; any other directory whose parent is unknown is a
// structural error that fails the run.
func (fi *FolderIndexer) IndexFolders(ctx context.Context, root string, dirs []string, progress func(int)) ([]store.Folder, error) {
	// Stable depth sort preserves the collector's sibling ordering while
	// guaranteeing parent-before-child even for externally supplied input.
	sorted := make([]string, len(dirs))
	copy(sorted, dirs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return pathDepth(sorted[i]) < pathDepth(sorted[j])
	})

	folders := make([]store.Folder, 0, len(sorted))
	for _, dir := range sorted {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var parentID *int64
		if dir != root {
			parentPath := filepath.Dir(dir)
			v, ok := fi.paths.Get(parentPath)
			if !ok {
				return nil, fmt.Errorf("%w: %s (parent %s)", ErrParentUnresolved, dir, parentPath)
			}
			id := v.(int64)
			parentID = &id
		}

		name := filepath.Base(dir)
		if name == string(filepath.Separator) || name == "." {
			// A filesystem root has no usable base name; fall back to the
			// full path, as the display name must never be empty.
			name = dir
		}

		id, err := fi.store.InsertFolder(parentID, sanitize.Name(name), sanitize.Path(dir))
		if err != nil {
			return nil, fmt.Errorf("failed to persist folder %s: %w", dir, err)
		}
		fi.paths.Insert(dir, id)

		folders = append(folders, store.Folder{
			ID:       id,
			ParentID: parentID,
			Name:     name,
			Path:     dir,
		})
		if progress != nil {
			progress(1)
		}
	}

	slog.Info("Folder index complete", "folders", len(folders))
	return folders, nil
}

// LoadFolders returns the folder rows persisted by a prior run, for
// skip-folders mode. An empty folder table means there is nothing to reuse
// and the caller must run a full index instead.
func LoadFolders(st store.IndexStore) ([]store.Folder, error) {
	folders, err := st.AllFolders()
	if err != nil {
		return nil, fmt.Errorf("failed to load existing folder index: %w", err)
	}
	if len(folders) == 0 {
		return nil, ErrNoFolderIndex
	}
	return folders, nil
}

func pathDepth(p string) int {
	return strings.Count(p, string(filepath.Separator))
}
