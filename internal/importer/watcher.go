package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long the watcher waits after the last write event
// before importing a file. Drops are usually copies, and importing a file
// mid-copy would truncate it.
const settleDelay = 2 * time.Second

// importedSuffix is appended to files after a successful import so the
// watcher never re-imports them.
const importedSuffix = ".imported"

// Watch imports every CSV file dropped into dir until ctx is canceled.
// Files already present at startup are imported first.
func (im *Importer) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("importer: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("importer: watch %s: %w", dir, err)
	}

	im.logger.Info("watching for csv drops", slog.String("dir", dir))

	if err := im.importExisting(ctx, dir); err != nil {
		return err
	}

	// Pending files and their settle timers. A second write to the same
	// file just restarts the wait.
	pending := map[string]*time.Timer{}
	ready := make(chan string)

	defer func() {
		for _, timer := range pending {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}

			if !isCSV(event.Name) {
				continue
			}

			path := event.Name
			if timer, exists := pending[path]; exists {
				timer.Reset(settleDelay)

				continue
			}

			pending[path] = time.AfterFunc(settleDelay, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})

		case path := <-ready:
			delete(pending, path)

			if err := im.importAndRename(ctx, path); err != nil {
				im.logger.Error("drop import failed",
					slog.String("file", path),
					slog.String("error", err.Error()),
				)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			im.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

// importExisting imports CSV files already sitting in the drop directory.
func (im *Importer) importExisting(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("importer: list %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isCSV(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := im.importAndRename(ctx, path); err != nil {
			im.logger.Error("startup import failed",
				slog.String("file", path),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// importAndRename imports one file and marks it consumed. A settle timer
// can fire twice for one drop when a write event races the ready channel,
// so a path that is already gone is skipped quietly.
func (im *Importer) importAndRename(ctx context.Context, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if _, err := im.ImportFile(ctx, path); err != nil {
		return err
	}

	if err := os.Rename(path, path+importedSuffix); err != nil {
		return fmt.Errorf("importer: rename %s: %w", path, err)
	}

	return nil
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}
