// Package integration adapts external event sources to core interfaces. The
// file watcher turns store edits into change notifications.
package integration

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/valter-silva-au/taskgraph/internal/logging"
)

// DefaultDebounce is how long the watcher waits after the last file event
// before notifying subscribers.
const DefaultDebounce = 200 * time.Millisecond

// FileWatcher turns filesystem events on the store files into payload-free
// change notifications. Bursts (an atomic save is create, write and rename)
// collapse into one notification per debounce window.
type FileWatcher struct {
	dir      string
	files    map[string]bool
	debounce time.Duration
	watcher  *fsnotify.Watcher
	log      *logging.Logger

	mu     sync.Mutex
	subs   map[int]func()
	nextID int

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewFileWatcher watches dir for changes to the named files. The directory
// itself is watched rather than the files, because atomic saves replace the
// file and a per-file watch would be lost on the first rename.
func NewFileWatcher(dir string, debounce time.Duration, log *logging.Logger, files ...string) (*FileWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logging.NopLogger()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating watched directory: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	names := make(map[string]bool, len(files))
	for _, f := range files {
		names[f] = true
	}
	return &FileWatcher{
		dir:      dir,
		files:    names,
		debounce: debounce,
		watcher:  w,
		log:      log.WithComponent("watcher"),
		subs:     make(map[int]func()),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Subscribe registers fn to be called after each debounced burst. Callbacks
// run on the watcher goroutine and should return quickly.
func (w *FileWatcher) Subscribe(fn func()) (unsubscribe func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.subs[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subs, id)
	}
}

// Start begins delivering events. It is safe to call more than once.
func (w *FileWatcher) Start() {
	w.startOnce.Do(func() { go w.loop() })
}

// Stop halts the watcher and waits for the event loop to exit.
func (w *FileWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		err = w.watcher.Close()
		// Without a prior Start nothing else will close doneCh.
		w.startOnce.Do(func() { close(w.doneCh) })
		<-w.doneCh
	})
	if err != nil {
		return fmt.Errorf("closing file watcher: %w", err)
	}
	return nil
}

func (w *FileWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	if len(w.files) == 0 {
		return true
	}
	return w.files[filepath.Base(event.Name)]
}

func (w *FileWatcher) loop() {
	defer close(w.doneCh)

	timer := time.NewTimer(0)
	<-timer.C
	pending := false

	for {
		select {
		case <-w.stopCh:
			timer.Stop()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debug("store file changed", "file", filepath.Base(event.Name), "op", event.Op.String())
			pending = true
			timer.Reset(w.debounce)

		case <-timer.C:
			if pending {
				pending = false
				w.notify()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", "error", err)
		}
	}
}

func (w *FileWatcher) notify() {
	w.mu.Lock()
	subs := make([]func(), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
