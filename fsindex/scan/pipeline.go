package scan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ZanzyTHEbar/fsindex/fsindex/store"

	"github.com/google/uuid"
)

// Options configures one indexing run.
type Options struct {
	// Root is the drive or subtree to index.
	Root string
	// SkipFolders reuses the folder rows persisted by a prior run and skips
	// collection and folder persistence (phases 1-2). File rows owned by the
	// reused folders are superseded before loading.
	SkipFolders bool
	// Workers bounds the file-scan pool; 0 means one per CPU.
	Workers int
	// BatchSize is the number of file rows per bulk-insert transaction.
	BatchSize int
	// Exclude holds gitignore-style patterns skipped during collection.
	Exclude []string
}

// Result summarizes a completed run.
type Result struct {
	Generation      uuid.UUID
	Folders         int64
	Files           int64
	Warnings        int64
	WarningExamples []string
	Duration        time.Duration
}

// Progress receives phase transitions and per-item ticks. Tick may be called
// concurrently during the scan phase. A total of -1 means the phase length is
// unknown up front.
type Progress interface {
	StartPhase(name string, total int)
	Tick(n int)
}

type noopProgress struct{}

func (noopProgress) StartPhase(string, int) {}
func (noopProgress) Tick(int)               {}

// Pipeline runs the four indexing phases against one store. Phases 1, 2 and
// 4 are single-threaded and strictly ordered; each one is a barrier the next
// phase waits on. Only phase 3 fans out, and it touches the store not at all,
// so the store never sees concurrent writers.
type Pipeline struct {
	store store.IndexStore
	opts  Options
}

// NewPipeline creates a pipeline for one run.
func NewPipeline(st store.IndexStore, opts Options) *Pipeline {
	return &Pipeline{store: st, opts: opts}
}

// Run executes the pipeline to completion. Cancelling the context aborts the
// run and leaves the open generation without a completion mark, so the
// partial state is detectable. Transient per-entry failures are accumulated
// as warnings in the result; any returned error means the catalog must not be
// trusted as a complete generation.
func (p *Pipeline) Run(ctx context.Context, progress Progress) (*Result, error) {
	if progress == nil {
		progress = noopProgress{}
	}
	warnings := NewWarningLog()
	start := time.Now()

	root, err := filepath.Abs(p.opts.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootInaccessible, p.opts.Root, err)
	}

	var (
		folders []store.Folder
		gen     uuid.UUID
	)
	if p.opts.SkipFolders {
		// Reuse the prior generation's folders. Stale rows whose directories
		// no longer exist on disk are tolerated here and surface as warnings
		// when the scanner fails to list them; they are never auto-pruned.
		folders, err = LoadFolders(p.store)
		if err != nil {
			return nil, err
		}
		slog.Info("Reusing persisted folder index", "folders", len(folders))

		if gen, err = p.store.BeginGeneration(root); err != nil {
			return nil, err
		}

		loader := NewBulkLoader(p.store, p.opts.BatchSize)
		if _, err := loader.Supersede(folders); err != nil {
			return nil, err
		}
	} else {
		// Validate the root before touching the store; a bad root must not
		// destroy the prior generation.
		if info, err := os.Stat(root); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRootInaccessible, root, err)
		} else if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrRootInaccessible, root)
		}

		// A full run replaces the prior generation wholesale.
		if err := p.store.Reset(); err != nil {
			return nil, err
		}
		if gen, err = p.store.BeginGeneration(root); err != nil {
			return nil, err
		}

		progress.StartPhase("Collecting directories", -1)
		collector := NewCollector(p.opts.Exclude, warnings)
		dirs, err := collector.Collect(ctx, root)
		if err != nil {
			return nil, err
		}
		progress.Tick(len(dirs))
		slog.Info("Directory collection complete", "directories", len(dirs))

		progress.StartPhase("Indexing folders", len(dirs))
		indexer := NewFolderIndexer(p.store)
		folders, err = indexer.IndexFolders(ctx, root, dirs, progress.Tick)
		if err != nil {
			return nil, err
		}
	}

	progress.StartPhase("Scanning files", len(folders))
	scanner := NewScanner(p.opts.Workers)
	records, err := scanner.ScanFolders(ctx, folders, warnings, progress.Tick)
	if err != nil {
		return nil, err
	}

	progress.StartPhase("Loading files", len(records))
	loader := NewBulkLoader(p.store, p.opts.BatchSize)
	loaded, err := loader.Load(ctx, records, progress.Tick)
	if err != nil {
		return nil, err
	}

	if err := p.store.CompleteGeneration(gen, int64(len(folders)), loaded, warnings.Count()); err != nil {
		return nil, err
	}

	warnings.LogSummary()
	result := &Result{
		Generation:      gen,
		Folders:         int64(len(folders)),
		Files:           loaded,
		Warnings:        warnings.Count(),
		WarningExamples: warnings.Examples(),
		Duration:        time.Since(start),
	}
	slog.Info("Indexing complete",
		"generation", gen,
		"folders", result.Folders,
		"files", result.Files,
		"warnings", result.Warnings,
		"duration", result.Duration)
	return result, nil
}
