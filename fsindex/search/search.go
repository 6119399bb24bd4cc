// Package search answers name queries against a persisted filesystem
// catalog. A query without wildcard metacharacters runs as an anchored-prefix
// lookup on the name index; a query containing `*` or `?` runs as a full-scan
// pattern match. Matching is case-insensitive in both modes.
package search

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/fsindex/fsindex/store"
)

// Mode identifies how a query will be executed.
type Mode int

const (
	// ModeLiteral is the indexed, anchored-prefix fast path.
	ModeLiteral Mode = iota
	// ModeWildcard is the unindexed full-scan pattern path.
	ModeWildcard
)

func (m Mode) String() string {
	if m == ModeWildcard {
		return "wildcard"
	}
	return "literal"
}

// Classify reports the execution mode for a raw query string. Any `*`
// (zero-or-more characters) or `?` (exactly one character) makes the query a
// wildcard query.
func Classify(query string) Mode {
	if strings.ContainsAny(query, "*?") {
		return ModeWildcard
	}
	return ModeLiteral
}

// Results holds the outcome of one query.
type Results struct {
	Query string
	Mode  Mode
	// Paths are the distinct resolved absolute paths of every matching file,
	// in store order.
	Paths []string
	// IndexIncomplete is set when the newest generation never finished, so
	// results may not reflect a complete snapshot.
	IndexIncomplete bool
}

// Engine executes queries against one catalog store.
type Engine struct {
	store store.IndexStore
	limit int
}

// NewEngine creates a search engine; limit <= 0 falls back to a cap of 1000
// results per query.
func NewEngine(st store.IndexStore, limit int) *Engine {
	if limit <= 0 {
		limit = 1000
	}
	return &Engine{store: st, limit: limit}
}

// Search classifies and executes a query, returning resolved absolute paths
// for every matching file. An empty result set is not an error.
func (e *Engine) Search(query string) (*Results, error) {
	results := &Results{
		Query: query,
		Mode:  Classify(query),
	}

	gen, err := e.store.LatestGeneration()
	if err != nil {
		return nil, err
	}
	if gen != nil && gen.CompletedAt == nil {
		slog.Warn("Catalog generation is incomplete; results may be partial",
			"generation", gen.ID, "root", gen.RootPath)
		results.IndexIncomplete = true
	}

	var hits []store.SearchHit
	switch results.Mode {
	case ModeWildcard:
		// No ordering can anchor an interior wildcard, so this evaluates
		// against every file row. Observable warning, not an error.
		slog.Warn("Wildcard query runs an unindexed full scan", "query", query)
		hits, err = e.store.FilesByNamePattern(TranslatePattern(query), e.limit)
	default:
		hits, err = e.store.FilesByNamePrefix(query, e.limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query %q failed: %w", query, err)
	}

	results.Paths = resolvePaths(hits)
	return results, nil
}

// TranslatePattern converts a `*`/`?` wildcard query into LIKE syntax:
// `*` becomes `%`, `?` becomes `_`, and literal LIKE metacharacters are
// escaped so a user's `%` or `_` is matched literally.
func TranslatePattern(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for _, r := range query {
		switch r {
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// resolvePaths derives each hit's absolute path from its owning folder's path
// and the file name, deduplicating while preserving store order.
func resolvePaths(hits []store.SearchHit) []string {
	seen := make(map[string]struct{}, len(hits))
	paths := make([]string, 0, len(hits))
	for _, h := range hits {
		p := filepath.Join(h.FolderPath, h.Name)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	return paths
}
