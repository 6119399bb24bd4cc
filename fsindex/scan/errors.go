package scan

import "errors"

// Error taxonomy for an indexing run. Transient per-entry failures are
// recorded as warnings and never surface here; everything below blocks the
// run because continuing would corrupt the catalog's tree invariant or leave
// a half-built index looking complete.
var (
	// ErrRootInaccessible means the scan root itself could not be opened.
	ErrRootInaccessible = errors.New("scan root is inaccessible")

	// ErrParentUnresolved means a collected directory's parent path was never
	// assigned an identifier, which breaks the folder tree invariant.
	ErrParentUnresolved = errors.New("folder parent could not be resolved")

	// ErrNoFolderIndex means a skip-folders run was requested against a
	// catalog with no persisted folder rows to reuse.
	ErrNoFolderIndex = errors.New("no folder index to reuse")
)
