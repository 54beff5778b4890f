package ports

// Watcher monitors a document directory and reports changed files.
// The adapter (fsnotify) filters out editor and VCS noise before invoking
// onChange. Only one Watch call should be active at a time.
type Watcher interface {
	// Watch starts monitoring dir recursively. onChange is called with the
	// absolute path of each changed file, from any goroutine. Returns an
	// error if the directory doesn't exist or cannot be watched.
	Watch(dir string, onChange func(path string)) error

	// Stop ends monitoring and releases all resources. After Stop returns,
	// no further onChange calls will fire. Safe to call multiple times.
	Stop() error
}
