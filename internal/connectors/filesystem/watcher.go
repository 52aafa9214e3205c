// Package filesystem watches a local folder for documents to ingest.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/neuroquery/internal/logger"
)

// DefaultSettle is how long a file must stay unchanged before it is reported.
const DefaultSettle = 500 * time.Millisecond

// ErrClosed is returned when watching a closed watcher.
var ErrClosed = errors.New("filesystem: watcher closed")

// ChangeType describes what happened to a watched file.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is a settled event on one file.
type Change struct {
	Type ChangeType
	Path string
}

// Watcher reports documents appearing, changing or disappearing in a folder.
// Only top-level, non-hidden files accepted by the filter are reported.
type Watcher struct {
	root   string
	accept func(name string) bool
	settle time.Duration

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithFilter restricts reported files to those for which accept returns true.
func WithFilter(accept func(name string) bool) Option {
	return func(w *Watcher) {
		w.accept = accept
	}
}

// WithSettle sets how long a file must be quiet before it is reported.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// New creates a watcher for root.
func New(root string, opts ...Option) *Watcher {
	w := &Watcher{
		root:   root,
		accept: func(string) bool { return true },
		settle: DefaultSettle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Scan lists the accepted files already present in the folder, sorted by name.
func (w *Watcher) Scan() ([]string, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return nil, fmt.Errorf("filesystem: reading %s: %w", w.root, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !w.wanted(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(w.root, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Watch starts watching and returns a channel of settled changes.
// The channel is closed when ctx is cancelled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}

	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("filesystem: root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("filesystem: root path error: %s is not a directory", w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("filesystem: creating watcher: %w", err)
	}
	if err := fsw.Add(w.root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("filesystem: watching %s: %w", w.root, err)
	}
	w.watcher = fsw

	changes := make(chan Change)
	go w.loop(ctx, fsw, changes)
	return changes, nil
}

// loop turns raw events into settled changes. Create and write events are
// held until the file has been quiet for the settle period; a file that is
// created and then written is reported once as created.
func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Change) {
	defer close(out)

	type pendingChange struct {
		change Change
		last   time.Time
	}
	pending := make(map[string]*pendingChange)

	ticker := time.NewTicker(max(w.settle/4, 10*time.Millisecond))
	defer ticker.Stop()

	emit := func(c Change) bool {
		select {
		case out <- c:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			change := w.handleFsEvent(event)
			if change == nil {
				continue
			}
			if change.Type == ChangeDeleted {
				delete(pending, change.Path)
				if !emit(*change) {
					return
				}
				continue
			}
			if p, ok := pending[change.Path]; ok {
				p.last = time.Now()
				continue
			}
			pending[change.Path] = &pendingChange{change: *change, last: time.Now()}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch %s: %v", w.root, err)

		case now := <-ticker.C:
			var ready []string
			for path, p := range pending {
				if now.Sub(p.last) >= w.settle {
					ready = append(ready, path)
				}
			}
			sort.Strings(ready)
			for _, path := range ready {
				c := pending[path].change
				delete(pending, path)
				if !emit(c) {
					return
				}
			}
		}
	}
}

// handleFsEvent maps an fsnotify event onto a change, or nil if it is ignored.
func (w *Watcher) handleFsEvent(event fsnotify.Event) *Change {
	if filepath.Dir(event.Name) != filepath.Clean(w.root) || !w.wanted(filepath.Base(event.Name)) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{Type: ChangeDeleted, Path: event.Name}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		typ := ChangeUpdated
		if event.Has(fsnotify.Create) {
			typ = ChangeCreated
		}
		return &Change{Type: typ, Path: event.Name}
	default:
		return nil
	}
}

func (w *Watcher) wanted(name string) bool {
	return !strings.HasPrefix(name, ".") && w.accept(name)
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
