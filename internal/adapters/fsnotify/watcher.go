// Package fsnotify implements the ports.Watcher interface using github.com/fsnotify/fsnotify.
// It recursively watches a document directory, drops editor and VCS noise,
// and debounces bursts of events per file (editors often write several times
// per save) so onChange fires once after the file settles.
package fsnotify

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period a file needs before onChange fires.
const DefaultDebounce = 100 * time.Millisecond

// Directories to ignore when watching.
var ignoreDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	".venv":        true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
	".scoreweb":    true,
}

// File suffixes written by editors and never documents themselves.
var ignoreSuffixes = []string{
	".swp", ".swx", ".swo", "~", ".tmp", ".part", ".crdownload", ".DS_Store",
}

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration

	// OnError receives watcher errors. Nil drops them; fsnotify keeps running.
	OnError func(error)

	fw      *fsnotify.Watcher
	done    chan struct{}
	stopped bool
	mu      sync.Mutex

	pending map[string]*time.Timer
	pmu     sync.Mutex
}

// NewWatcher creates a new file system watcher.
func NewWatcher() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fw:      fw,
		done:    make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}, nil
}

// Watch starts monitoring dir recursively.
// onChange is called with the absolute path of each changed file.
func (w *Watcher) Watch(dir string, onChange func(path string)) error {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := w.addTree(absPath); err != nil {
		return err
	}

	go w.loop(onChange)
	return nil
}

// addTree adds root and every non-ignored directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // skip inaccessible paths
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && ignoreDirs[info.Name()] {
			return filepath.SkipDir
		}
		return w.fw.Add(path)
	})
}

func (w *Watcher) loop(onChange func(path string)) {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			path := event.Name

			// New directories join the watch list. A directory moved in
			// already holds documents that produce no events of their own,
			// so each of them is scheduled as changed.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(path); err == nil && info.IsDir() {
					if !ignoreDirs[info.Name()] && !shouldIgnorePath(path) {
						if err := w.addTree(path); err != nil {
							w.report(err)
						}
						w.scheduleTree(path, onChange)
					}
					continue
				}
			}

			if shouldIgnorePath(path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.schedule(path, onChange)
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.report(err)

		case <-w.done:
			return
		}
	}
}

// schedule (re)arms the debounce timer for path.
func (w *Watcher) schedule(path string, onChange func(path string)) {
	delay := w.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}

	w.pmu.Lock()
	defer w.pmu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(delay)
		return
	}
	w.pending[path] = time.AfterFunc(delay, func() {
		w.pmu.Lock()
		delete(w.pending, path)
		w.pmu.Unlock()

		select {
		case <-w.done:
			return
		default:
		}
		onChange(path)
	})
}

// scheduleTree schedules every file below root that onChange would accept.
func (w *Watcher) scheduleTree(root string, onChange func(path string)) {
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && ignoreDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !shouldIgnorePath(path) {
			w.schedule(path, onChange)
		}
		return nil
	})
}

func (w *Watcher) report(err error) {
	if w.OnError != nil {
		w.OnError(err)
	}
}

// Stop ends monitoring and releases all resources.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)

	w.pmu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.pmu.Unlock()

	return w.fw.Close()
}

// shouldIgnorePath returns true if the file path should not trigger onChange.
func shouldIgnorePath(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".#") {
		return true
	}
	for _, suffix := range ignoreSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}

	for _, part := range strings.Split(filepath.Dir(path), string(filepath.Separator)) {
		if ignoreDirs[part] {
			return true
		}
	}
	return false
}
