package gastatus

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher notifies on changes to any *.ndjson output file under a workspace,
// so the dashboard's poll loop can
// react to writes immediately instead of waiting for the next tick. It is a
// best-effort accelerant: CheckForChanges's mtime comparison remains the
// source of truth, so a missed or coalesced fsnotify event only costs one
// extra poll interval, never a stuck snapshot.
type Watcher struct {
	watcher *fsnotify.Watcher
	changed chan struct{}
	done    chan struct{}

	mu            sync.Mutex
	debounce      time.Duration
	pending       *time.Timer
	closed        bool
}

// DefaultWatcherDebounce coalesces the burst of writes a single NDJSON
// append produces.
const DefaultWatcherDebounce = 100 * time.Millisecond

// NewWatcher watches root and every subdirectory that exists at call time
// for NDJSON writes. Subdirectories created later (a fresh generation) are
// added to the watch when their create event arrives.
func NewWatcher(root string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		changed:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		debounce: DefaultWatcherDebounce,
	}

	if err := w.addRecursive(root); err != nil {
		fw.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			if err := w.watcher.Add(path); err != nil && !os.IsPermission(err) {
				return err
			}
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addRecursive(event.Name)
			return
		}
	}
	if filepath.Ext(event.Name) != ".ndjson" {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	w.signal()
}

func (w *Watcher) signal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, func() {
		select {
		case w.changed <- struct{}{}:
		default:
		}
	})
}

// Changes signals (coalesced) whenever a tracked output file is written.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changed
}

// Close stops the watcher and releases its file descriptors.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}
