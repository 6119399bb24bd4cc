package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"
)

// Collector walks a directory tree and produces the ordered set of readable
// directories under a root. The walk is single-threaded so the output is
// deterministic and every directory appears after its parent, which the
// folder store depends on for parent resolution.
type Collector struct {
	ignored  *ignore.GitIgnore // nil when no exclude patterns are configured
	warnings *WarningLog
}

// NewCollector creates a collector. Exclude patterns use gitignore syntax and
// are matched against absolute paths.
func NewCollector(excludes []string, warnings *WarningLog) *Collector {
	c := &Collector{warnings: warnings}
	if len(excludes) > 0 {
		c.ignored = ignore.CompileIgnoreLines(excludes...)
	}
	return c
}

// Collect returns every directory reachable from root as an absolute path,
// parents before children, siblings in lexical order. A directory that cannot
// be read is skipped with a warning and its subtree is not descended into;
// only a root that cannot be opened fails the whole collection.
func (c *Collector) Collect(ctx context.Context, root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootInaccessible, root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootInaccessible, absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootInaccessible, absRoot)
	}

	var dirs []string

	// Iterative depth-first walk. Children are pushed in reverse lexical
	// order so they pop in lexical order.
	stack := []string{absRoot}
	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		dirs = append(dirs, dir)

		entries, err := os.ReadDir(dir)
		if err != nil {
			if dir == absRoot {
				return nil, fmt.Errorf("%w: %s: %v", ErrRootInaccessible, absRoot, err)
			}
			// Entry vanished or became unreadable between discovery and
			// descent; siblings continue.
			c.warnings.Add(dir, err)
			dirs = dirs[:len(dirs)-1]
			continue
		}

		var children []string
		for _, entry := range entries {
			// DirEntry type comes from lstat semantics, so symlinked
			// directories are not followed and cannot form cycles.
			if !entry.IsDir() {
				continue
			}
			child := filepath.Join(dir, entry.Name())
			if c.ignored != nil && c.ignored.MatchesPath(child) {
				continue
			}
			children = append(children, child)
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return dirs, nil
}
