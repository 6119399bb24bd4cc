package scan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/ZanzyTHEbar/fsindex/fsindex/sanitize"
	"github.com/ZanzyTHEbar/fsindex/fsindex/store"

	"github.com/sourcegraph/conc/pool"
)

// Scanner lists the files directly inside every indexed folder using a
// bounded worker pool. Listing is non-recursive: subfolders are already
// separate folder rows. Workers share no mutable state; each one opens its
// assigned folders itself and hands a finished batch back to the coordinator,
// which merges everything after the fan-in barrier.
type Scanner struct {
	workers int
}

// fileBatch is one worker's complete output for its chunk of folders.
type fileBatch struct {
	records      []store.FileRecord
	warnings     []string
	warningCount int64
}

// NewScanner creates a scanner with the given worker bound; 0 means one
// worker per CPU.
func NewScanner(workers int) *Scanner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scanner{workers: workers}
}

// ScanFolders partitions folders across the worker pool and returns the
// merged file records. A folder that cannot be listed (permission error,
// vanished since collection, stale row from a reused folder index) is skipped
// and counted in the returned warning log; it never fails the run. The
// progress callback is invoked once per processed folder and must be safe for
// concurrent use.
func (s *Scanner) ScanFolders(ctx context.Context, folders []store.Folder, warnings *WarningLog, progress func(int)) ([]store.FileRecord, error) {
	if len(folders) == 0 {
		return nil, nil
	}

	chunks := partition(folders, s.workers*4)
	slog.Debug("Scanning folders",
		"folders", len(folders),
		"workers", s.workers,
		"chunks", len(chunks))

	p := pool.NewWithResults[fileBatch]().
		WithMaxGoroutines(s.workers).
		WithContext(ctx)

	for _, chunk := range chunks {
		chunk := chunk // go.mod targets go 1.21: rebind for per-iteration capture
		p.Go(func(ctx context.Context) (fileBatch, error) {
			return scanChunk(ctx, chunk, progress)
		})
	}

	batches, err := p.Wait()
	if err != nil {
		return nil, fmt.Errorf("file scan failed: %w", err)
	}

	var records []store.FileRecord
	for _, batch := range batches {
		records = append(records, batch.records...)
		warnings.Merge(batch.warnings, batch.warningCount)
	}
	return records, nil
}

// scanChunk lists every folder in one chunk. Only context cancellation is
// returned as an error; per-folder failures become warnings in the batch.
func scanChunk(ctx context.Context, chunk []store.Folder, progress func(int)) (fileBatch, error) {
	var batch fileBatch

	for _, folder := range chunk {
		select {
		case <-ctx.Done():
			return batch, ctx.Err()
		default:
		}

		entries, err := os.ReadDir(folder.Path)
		if err != nil {
			batch.addWarning(folder.Path, err)
			if progress != nil {
				progress(1)
			}
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				// Entry vanished between listing and stat.
				batch.addWarning(folder.Path+string(os.PathSeparator)+entry.Name(), err)
				continue
			}
			batch.records = append(batch.records, store.FileRecord{
				FolderID: folder.ID,
				Name:     sanitize.Name(entry.Name()),
				Size:     info.Size(),
				ModTime:  info.ModTime(),
			})
		}
		if progress != nil {
			progress(1)
		}
	}
	return batch, nil
}

func (b *fileBatch) addWarning(path string, err error) {
	b.warningCount++
	if len(b.warnings) < maxWarningExamples {
		b.warnings = append(b.warnings, fmt.Sprintf("%s: %v", path, err))
	}
}

// partition splits folders into at most n contiguous chunks of near-equal
// size.
func partition(folders []store.Folder, n int) [][]store.Folder {
	if n < 1 {
		n = 1
	}
	chunkSize := (len(folders) + n - 1) / n
	if chunkSize < 1 {
		chunkSize = 1
	}

	var chunks [][]store.Folder
	for start := 0; start < len(folders); start += chunkSize {
		end := start + chunkSize
		if end > len(folders) {
			end = len(folders)
		}
		chunks = append(chunks, folders[start:end])
	}
	return chunks
}
