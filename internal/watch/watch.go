// Package watch re-triggers builds when project files change.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/envbuild/internal/ctxlog"
)

// DefaultDebounce is the quiet period after the last change before a
// rebuild starts.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reports batches of changed files.
type Watcher struct {
	// Root is watched non-recursively so manifest and hook edits count.
	Root string
	// Dirs are watched recursively. Missing dirs are skipped.
	Dirs     []string
	Debounce time.Duration
}

// New returns a watcher for root and the given project dirs.
func New(root string, dirs ...string) *Watcher {
	return &Watcher{Root: root, Dirs: dirs, Debounce: DefaultDebounce}
}

// Run blocks until ctx is done. onChange is called serially with the sorted
// set of paths that changed during each burst of activity.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, changed []string)) error {
	logger := ctxlog.FromContext(ctx)
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if w.Root != "" {
		if err := fw.Add(w.Root); err != nil {
			return err
		}
	}
	for _, d := range w.Dirs {
		if err := addTree(fw, d); err != nil {
			return err
		}
	}
	logger.Info("Watching for changes.", "root", w.Root, "dirs", len(w.Dirs))

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if hidden(event.Name) || !event.Has(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(fw, event.Name); err != nil {
						logger.Warn("Cannot watch new directory.", "path", event.Name, "error", err)
					}
				}
			}
			logger.Debug("File changed.", "path", event.Name, "op", event.Op.String())
			pending[event.Name] = true
			timer.Reset(debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error.", "error", err)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			onChange(ctx, changed)
		}
	}
}

func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && os.IsNotExist(err) {
				return fs.SkipAll
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		return fw.Add(path)
	})
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
