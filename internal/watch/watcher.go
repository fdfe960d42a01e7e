package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"jenkey/pkg/logging"
)

// DefaultInterval is how long the watcher waits for further changes before
// running the callback.
const DefaultInterval = 500 * time.Millisecond

// ErrNothingToWatch is returned by Run when none of the roots exist.
var ErrNothingToWatch = errors.New("none of the watched directories exist")

// Options configures a Watcher.
type Options struct {
	// Interval is the debounce interval. Zero means DefaultInterval.
	Interval time.Duration
	// Match reports whether a changed file is relevant. Nil accepts every
	// file that is not hidden or an editor backup.
	Match func(path string) bool
}

// Watcher batches file changes under a set of root directories.
type Watcher struct {
	roots    []string
	interval time.Duration
	match    func(string) bool

	// ready is called once all watches are registered.
	ready func()
}

// New creates a watcher over roots. Roots that do not exist are skipped
// when Run starts.
func New(roots []string, opts Options) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Match == nil {
		opts.Match = IsSourceFile
	}
	return &Watcher{
		roots:    slices.Clone(roots),
		interval: opts.Interval,
		match:    opts.Match,
	}
}

// Run watches until ctx is cancelled. onChange receives the sorted set of
// changed paths of each debounced batch and runs on the calling goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context, []string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if err := fw.Close(); err != nil {
			logging.Error("Watcher", err, "Error closing filesystem watcher")
		}
	}()

	watched := 0
	for _, root := range w.roots {
		n, err := addTree(fw, root)
		if err != nil {
			logging.Warn("Watcher", "Failed to watch %s: %v", root, err)
		}
		watched += n
	}
	if watched == 0 {
		return ErrNothingToWatch
	}
	logging.Info("Watcher", "Watching %d directories for changes", watched)
	if w.ready != nil {
		w.ready()
	}

	fire := make(chan struct{}, 1)
	pending := make(map[string]struct{})
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if _, err := addTree(fw, event.Name); err != nil {
						logging.Warn("Watcher", "Failed to watch %s: %v", event.Name, err)
					}
					continue
				}
			}
			if event.Op == fsnotify.Chmod || !w.match(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.interval, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(w.interval)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.Error("Watcher", err, "Filesystem watcher error")

		case <-fire:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			slices.Sort(paths)
			clear(pending)

			logging.Debug("Watcher", "Detected changes in %s", strings.Join(paths, ", "))
			onChange(ctx, paths)
		}
	}
}

// addTree watches dir and every directory below it. A missing dir is not
// an error.
func addTree(fw *fsnotify.Watcher, dir string) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				logging.Debug("Watcher", "Skipping missing directory %s", dir)
				return fs.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

// IsSourceFile reports whether path looks like a file a user edited, as
// opposed to hidden files and editor swap or backup files.
func IsSourceFile(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."), strings.HasPrefix(base, "#"):
		return false
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".tmp"):
		return false
	}
	return true
}
