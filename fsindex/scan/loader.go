package scan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ZanzyTHEbar/fsindex/fsindex/store"

	"github.com/RoaringBitmap/roaring/roaring64"
)

// defaultBatchSize bounds transaction overhead without holding millions of
// rows in a single write transaction.
const defaultBatchSize = 5000

// deleteChunkSize stays under SQLite's bound-parameter limit.
const deleteChunkSize = 500

// BulkLoader persists scanner output in large, infrequent write transactions.
type BulkLoader struct {
	store     store.IndexStore
	batchSize int
}

// NewBulkLoader creates a loader; batchSize <= 0 selects the default.
func NewBulkLoader(st store.IndexStore, batchSize int) *BulkLoader {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &BulkLoader{store: st, batchSize: batchSize}
}

// Supersede deletes the file rows owned by the given folders so a re-index
// pass converges to the current on-disk truth instead of accumulating stale
// or duplicate entries. It must run before Load when reusing a prior
// generation's folder rows. Returns the number of rows removed.
func (bl *BulkLoader) Supersede(folders []store.Folder) (int64, error) {
	// Folder ids are deduplicated through a roaring bitmap and come back out
	// sorted, which keeps the delete batches ordered by id.
	ids := roaring64.New()
	for _, f := range folders {
		ids.Add(uint64(f.ID))
	}

	var (
		deleted int64
		chunk   = make([]int64, 0, deleteChunkSize)
	)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		n, err := bl.store.DeleteFilesForFolders(chunk)
		if err != nil {
			return fmt.Errorf("failed to supersede prior file rows: %w", err)
		}
		deleted += n
		chunk = chunk[:0]
		return nil
	}

	it := ids.Iterator()
	for it.HasNext() {
		chunk = append(chunk, int64(it.Next()))
		if len(chunk) == deleteChunkSize {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := flush(); err != nil {
		return deleted, err
	}

	slog.Info("Superseded prior file rows", "folders", ids.GetCardinality(), "deleted", deleted)
	return deleted, nil
}

// Load inserts all records in batches of batchSize. A failed batch is fatal
// to the run and the error identifies which batch failed, so a half-populated
// catalog is never mistaken for a complete one. The progress callback
// receives the number of records committed per batch.
func (bl *BulkLoader) Load(ctx context.Context, records []store.FileRecord, progress func(int)) (int64, error) {
	var inserted int64
	for start := 0; start < len(records); start += bl.batchSize {
		select {
		case <-ctx.Done():
			return inserted, ctx.Err()
		default:
		}

		end := start + bl.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		if err := bl.store.BulkInsertFiles(batch); err != nil {
			return inserted, fmt.Errorf("bulk insert batch %d (records %d-%d): %w",
				start/bl.batchSize+1, start, end-1, err)
		}
		inserted += int64(len(batch))
		if progress != nil {
			progress(len(batch))
		}
	}

	slog.Info("Bulk load complete", "files", inserted)
	return inserted, nil
}
