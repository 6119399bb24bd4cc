package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mkdirTree creates nested directories under root and returns root.
func mkdirTree(t *testing.T, dirs ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	return root
}

func TestCollectOrdering(t *testing.T) {
	root := mkdirTree(t, "b", "a/sub", "a/zub")

	c := NewCollector(nil, NewWarningLog())
	dirs, err := c.Collect(context.Background(), root)
	require.NoError(t, err)

	want := []string{
		root,
		filepath.Join(root, "a"),
		filepath.Join(root, "a", "sub"),
		filepath.Join(root, "a", "zub"),
		filepath.Join(root, "b"),
	}
	assert.Equal(t, want, dirs, "depth-first, parents before children, siblings lexical")
}

func TestCollectSkipsFiles(t *testing.T) {
	root := mkdirTree(t, "docs")
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644))

	c := NewCollector(nil, NewWarningLog())
	dirs, err := c.Collect(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{root, filepath.Join(root, "docs")}, dirs)
}

func TestCollectExcludePatterns(t *testing.T) {
	root := mkdirTree(t, "src", "node_modules/dep", "build")

	c := NewCollector([]string{"node_modules", "build"}, NewWarningLog())
	dirs, err := c.Collect(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{root, filepath.Join(root, "src")}, dirs,
		"excluded directories and their subtrees are not collected")
}

func TestCollectDoesNotFollowSymlinkedDirs(t *testing.T) {
	root := mkdirTree(t, "real")
	link := filepath.Join(root, "link")
	if err := os.Symlink(filepath.Join(root, "real"), link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	c := NewCollector(nil, NewWarningLog())
	dirs, err := c.Collect(context.Background(), root)
	require.NoError(t, err)
	assert.NotContains(t, dirs, link)
}

func TestCollectMissingRootIsFatal(t *testing.T) {
	c := NewCollector(nil, NewWarningLog())
	_, err := c.Collect(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrRootInaccessible)
}

func TestCollectFileRootIsFatal(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	c := NewCollector(nil, NewWarningLog())
	_, err := c.Collect(context.Background(), file)
	assert.ErrorIs(t, err, ErrRootInaccessible)
}

func TestCollectCancellation(t *testing.T) {
	root := mkdirTree(t, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCollector(nil, NewWarningLog())
	_, err := c.Collect(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}
