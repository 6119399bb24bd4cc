package scan

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ZanzyTHEbar/fsindex/fsindex/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("content"), 0o644))
	}
}

func TestScanFoldersNonRecursive(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeFiles(t, root, "top.txt")
	writeFiles(t, sub, "nested.txt")

	folders := []store.Folder{
		{ID: 1, Path: root},
		{ID: 2, Path: sub},
	}

	warnings := NewWarningLog()
	records, err := NewScanner(2).ScanFolders(context.Background(), folders, warnings, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Zero(t, warnings.Count())

	byName := make(map[string]store.FileRecord)
	for _, r := range records {
		byName[r.Name] = r
	}
	// Each file is tagged with its own folder: listing is per-folder, never
	// recursive.
	assert.Equal(t, int64(1), byName["top.txt"].FolderID)
	assert.Equal(t, int64(2), byName["nested.txt"].FolderID)
	assert.Equal(t, int64(7), byName["top.txt"].Size)
	assert.False(t, byName["top.txt"].ModTime.IsZero())
}

func TestScanFoldersSkipsSubdirEntries(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "child"), 0o755))
	writeFiles(t, root, "only.txt")

	records, err := NewScanner(1).ScanFolders(context.Background(),
		[]store.Folder{{ID: 1, Path: root}}, NewWarningLog(), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "only.txt", records[0].Name)
}

func TestScanFoldersUnreadableFolderIsWarning(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "keep.txt")

	folders := []store.Folder{
		{ID: 1, Path: filepath.Join(root, "vanished")}, // never existed on disk
		{ID: 2, Path: root},
	}

	warnings := NewWarningLog()
	records, err := NewScanner(2).ScanFolders(context.Background(), folders, warnings, nil)
	require.NoError(t, err, "an unreadable folder must not fail the run")

	// The sibling folder's files are still indexed.
	require.Len(t, records, 1)
	assert.Equal(t, "keep.txt", records[0].Name)
	assert.GreaterOrEqual(t, warnings.Count(), int64(1))
	assert.NotEmpty(t, warnings.Examples())
}

func TestScanFoldersEmptyInput(t *testing.T) {
	records, err := NewScanner(4).ScanFolders(context.Background(), nil, NewWarningLog(), nil)
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestScanFoldersProgress(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	require.NoError(t, os.Mkdir(a, 0o755))
	require.NoError(t, os.Mkdir(b, 0o755))

	folders := []store.Folder{
		{ID: 1, Path: root},
		{ID: 2, Path: a},
		{ID: 3, Path: b},
	}

	var ticks atomic.Int64
	_, err := NewScanner(3).ScanFolders(context.Background(), folders, NewWarningLog(),
		func(n int) { ticks.Add(int64(n)) })
	require.NoError(t, err)
	assert.Equal(t, int64(3), ticks.Load(), "one tick per processed folder")
}

func TestScanFoldersCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	folders := []store.Folder{{ID: 1, Path: t.TempDir()}}
	_, err := NewScanner(1).ScanFolders(ctx, folders, NewWarningLog(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPartition(t *testing.T) {
	folders := make([]store.Folder, 10)

	chunks := partition(folders, 4)
	require.Len(t, chunks, 4)

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	assert.Equal(t, 10, total)

	// More requested chunks than folders still covers every folder once.
	chunks = partition(folders[:2], 8)
	total = 0
	for _, c := range chunks {
		total += len(c)
	}
	assert.Equal(t, 2, total)
}
