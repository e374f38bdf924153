package indexer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch runs an fsnotify-backed incremental reindex loop: instead of a
// full directory walk on every tick, it watches the tree for Write and
// Create events and re-summarizes only the files that changed.
// The watch stops when ctx is cancelled.
func (ix *Indexer) Watch(ctx context.Context, onProgress func(relpath string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, ix.root, ix.ignore); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			info, err := os.Stat(ev.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if ev.Op&fsnotify.Create != 0 {
					_ = addWatchDirs(watcher, ev.Name, ix.ignore)
				}
				continue
			}
			relpath, err := filepath.Rel(ix.root, ev.Name)
			if err != nil || ix.ignore.ignored(relpath) {
				continue
			}
			if err := ix.refreshFile(ctx, relpath); err != nil {
				slog.Warn("indexer: watch refresh failed", "path", relpath, "error", err)
				continue
			}
			if onProgress != nil {
				onProgress(relpath)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("indexer: watch error", "error", err)
		}
	}
}

func addWatchDirs(watcher *fsnotify.Watcher, root string, ignore *ignoreMatcher) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		relpath, relErr := filepath.Rel(root, path)
		if relErr == nil && relpath != "." && ignore.ignored(relpath) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
