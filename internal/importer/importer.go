package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fairlead/surveysync/internal/backend"
	syncpkg "github.com/fairlead/surveysync/internal/sync"
)

// uploadChunk is how many utility rows one backend insert carries.
const uploadChunk = 10

// Remote is the backend surface the importer pushes batches to.
type Remote interface {
	InsertUtilityEntries(ctx context.Context, recs []backend.UtilityRecord) error
}

// Importer lands CSV utility entries in the local store and, when the
// backend is reachable, pushes them in chunks. Entries that cannot be
// pushed stay queued for the sync processor.
type Importer struct {
	store   *syncpkg.Store
	remote  Remote
	monitor *syncpkg.Monitor
	logger  *slog.Logger
}

// New creates an importer.
func New(store *syncpkg.Store, remote Remote, monitor *syncpkg.Monitor, logger *slog.Logger) *Importer {
	return &Importer{store: store, remote: remote, monitor: monitor, logger: logger}
}

// Result summarizes one file import.
type Result struct {
	Imported int         // rows landed in the local store
	Pushed   int         // rows confirmed by the backend
	Queued   int         // rows left for the sync processor
	Rejected []*RowError // rows that failed parsing or validation
}

// ImportFile imports one CSV file. Every parseable row is persisted
// locally first; rejected rows are reported but do not abort the import.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("importer: open %s: %w", path, err)
	}
	defer f.Close()

	parsed, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("importer: parse %s: %w", path, err)
	}

	result := &Result{Rejected: parsed.Rejected}

	for _, entry := range parsed.Entries {
		entry.NeedsSync = true
		entry.OfflineCreated = !im.monitor.Online()
		entry.Version = 1

		if err := im.store.PutUtilityEntry(ctx, entry); err != nil {
			return result, err
		}

		result.Imported++
	}

	if im.monitor.Online() {
		pushed, err := im.push(ctx, parsed.Entries)
		result.Pushed = pushed

		if err != nil {
			im.logger.Warn("push failed, queueing remainder",
				slog.String("file", path),
				slog.String("error", err.Error()),
			)
		}
	}

	// Whatever the backend did not confirm goes through the queue.
	for _, entry := range parsed.Entries[result.Pushed:] {
		if _, err := im.store.Enqueue(ctx, syncpkg.KindUtility, entry.ID, syncpkg.ActionCreate); err != nil {
			return result, err
		}

		result.Queued++
	}

	im.logger.Info("csv import finished",
		slog.String("file", path),
		slog.Int("imported", result.Imported),
		slog.Int("pushed", result.Pushed),
		slog.Int("queued", result.Queued),
		slog.Int("rejected", len(result.Rejected)),
	)

	return result, nil
}

// push uploads entries in uploadChunk-sized groups, marking each confirmed
// row synced. Returns how many entries the backend confirmed; the caller
// queues the rest.
func (im *Importer) push(ctx context.Context, entries []*syncpkg.UtilityEntry) (int, error) {
	pushed := 0

	for start := 0; start < len(entries); start += uploadChunk {
		end := min(start+uploadChunk, len(entries))

		chunk := make([]backend.UtilityRecord, 0, end-start)
		for _, entry := range entries[start:end] {
			chunk = append(chunk, backend.UtilityRecord{
				ID:             entry.ID,
				ReadingDate:    entry.ReadingDate,
				UtilityType:    entry.UtilityType,
				Supplier:       entry.Supplier,
				Amount:         entry.Amount,
				Reading:        entry.Reading,
				Unit:           entry.Unit,
				Notes:          entry.Notes,
				CreatedAtNanos: entry.CreatedAt,
			})
		}

		if err := im.remote.InsertUtilityEntries(ctx, chunk); err != nil {
			return pushed, err
		}

		for _, entry := range entries[start:end] {
			if err := im.store.MarkSynced(ctx, syncpkg.KindUtility, entry.ID); err != nil {
				return pushed, err
			}

			pushed++
		}
	}

	return pushed, nil
}
