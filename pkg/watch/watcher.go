// Package watch rescans manifests and scripts of a directory tree as they
// change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sambabib/sustainable-electron/pkg/diagnostics"
	"github.com/sambabib/sustainable-electron/pkg/document"
	"github.com/sambabib/sustainable-electron/pkg/logger"
)

// DefaultDebounce is how long a file must stay quiet before it is rescanned.
const DefaultDebounce = 100 * time.Millisecond

var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// Watcher feeds file events under a root directory to a Dispatcher. Writes
// and creations become change events, removals and renames close the document.
type Watcher struct {
	root       string
	dispatcher *diagnostics.Dispatcher
	fsw        *fsnotify.Watcher
	debounce   *debouncer

	mu       sync.Mutex
	versions map[string]int32
}

// New creates a Watcher for root. A zero debounce uses DefaultDebounce.
func New(root string, dispatcher *diagnostics.Dispatcher, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		root:       abs,
		dispatcher: dispatcher,
		fsw:        fsw,
		debounce:   newDebouncer(debounce),
		versions:   make(map[string]int32),
	}, nil
}

// Run opens every tracked file under the root, then follows changes until
// ctx is cancelled. The dispatcher stays owned by the caller.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	defer w.debounce.stop()

	if err := w.addTree(w.root); err != nil {
		return err
	}
	logger.Infof("Watching %s", w.root)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	path := event.Name
	switch {
	case event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if event.Op.Has(fsnotify.Create) && !skipDirs[info.Name()] {
				if err := w.addTree(path); err != nil {
					logger.Errorf("Watch: %v", err)
				}
			}
			return
		}
		if !document.Tracked(path) {
			return
		}
		w.debounce.trigger(path, func() { w.open(path) })
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		if !document.Tracked(path) {
			return
		}
		w.debounce.trigger(path, func() { w.close(ctx, path) })
	}
}

// addTree watches dir and its subdirectories and opens the tracked files in them.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debugf("Watch: skipping %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if path != dir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		}
		if document.Tracked(path) {
			w.open(path)
		}
		return nil
	})
}

func (w *Watcher) open(path string) {
	w.mu.Lock()
	w.versions[path]++
	version := w.versions[path]
	w.mu.Unlock()

	doc, err := document.FromFile(path, version)
	if err != nil {
		// removed between the event and the read; the remove event follows
		logger.Debugf("Watch: %v", err)
		return
	}
	if version == 1 {
		w.dispatcher.Open(doc)
		return
	}
	w.dispatcher.Change(doc)
}

func (w *Watcher) close(ctx context.Context, path string) {
	if _, err := os.Stat(path); err == nil {
		// renamed over or recreated: rescan instead
		w.open(path)
		return
	}
	w.mu.Lock()
	delete(w.versions, path)
	w.mu.Unlock()
	if err := w.dispatcher.Close(ctx, document.FileURI(path)); err != nil {
		logger.Errorf("Watch: failed to clear %s: %v", path, err)
	}
}
