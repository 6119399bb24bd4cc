package scan

import (
	"fmt"
	"log/slog"
)

// maxWarningExamples bounds how many skipped entries are kept verbatim for
// the end-of-run summary.
const maxWarningExamples = 10

// WarningLog accumulates non-fatal skip events from a single run. Skipped
// entries are reported once as a count plus representative examples instead
// of one line per entry. WarningLog is not safe for concurrent use; parallel
// scan workers return their warnings with their batch and the coordinator
// merges them here after the fan-in barrier.
type WarningLog struct {
	count    int64
	examples []string
}

// NewWarningLog returns an empty warning accumulator.
func NewWarningLog() *WarningLog {
	return &WarningLog{}
}

// Add records one skipped entry.
func (w *WarningLog) Add(path string, err error) {
	slog.Debug("Skipping inaccessible entry", "path", path, "error", err)
	w.count++
	if len(w.examples) < maxWarningExamples {
		w.examples = append(w.examples, fmt.Sprintf("%s: %v", path, err))
	}
}

// Merge folds a batch of pre-formatted warning examples into the log.
func (w *WarningLog) Merge(examples []string, count int64) {
	w.count += count
	for _, ex := range examples {
		if len(w.examples) >= maxWarningExamples {
			break
		}
		w.examples = append(w.examples, ex)
	}
}

// Count returns the total number of skipped entries.
func (w *WarningLog) Count() int64 {
	return w.count
}

// Examples returns up to maxWarningExamples representative entries.
func (w *WarningLog) Examples() []string {
	return w.examples
}

// LogSummary emits a single structured warning for the whole run.
func (w *WarningLog) LogSummary() {
	if w.count == 0 {
		return
	}
	slog.Warn("Entries skipped during indexing",
		"count", w.count,
		"examples", w.examples)
}
