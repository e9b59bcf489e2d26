package sync

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"jurnalguru/internal/events"
	"jurnalguru/internal/utils"
	"jurnalguru/store"
)

// AnyCollection marks a change seen on the database file, where the
// collection that was written is unknown.
const AnyCollection = "*"

// DBWatcher publishes a change whenever the database file or its WAL is
// written, so writes made by another process (another CLI invocation while
// `sync watch` runs) also reach the trigger.
type DBWatcher struct {
	path    string
	names   map[string]bool
	bus     *events.Bus
	watcher *fsnotify.Watcher

	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewDBWatcher creates a watcher for the database at dbPath. Start it to
// begin publishing on bus.
func NewDBWatcher(dbPath string, bus *events.Bus) (*DBWatcher, error) {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	base := filepath.Base(abs)
	return &DBWatcher{
		path:    abs,
		names:   map[string]bool{base: true, base + "-wal": true, base + "-journal": true},
		bus:     bus,
		watcher: w,
		done:    make(chan struct{}),
	}, nil
}

// Start watches the database directory. The directory is watched instead of
// the file because SQLite creates and removes the WAL file as it goes.
func (dw *DBWatcher) Start() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.running {
		return fmt.Errorf("watcher already running")
	}
	dir := filepath.Dir(dw.path)
	if err := dw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	dw.running = true
	dw.wg.Add(1)
	go dw.loop()
	return nil
}

// Stop ends watching and waits for the event loop to exit.
func (dw *DBWatcher) Stop() error {
	dw.mu.Lock()
	if !dw.running {
		dw.mu.Unlock()
		return dw.watcher.Close()
	}
	dw.running = false
	dw.mu.Unlock()

	close(dw.done)
	err := dw.watcher.Close()
	dw.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// IsRunning reports whether the watcher is started.
func (dw *DBWatcher) IsRunning() bool {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return dw.running
}

func (dw *DBWatcher) loop() {
	defer dw.wg.Done()

	for {
		select {
		case <-dw.done:
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if dw.relevant(event) {
				dw.bus.Publish(events.Change{Collection: AnyCollection, Op: store.OpUpdate})
			}

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			utils.Warnf("Database watcher error: %v", err)
		}
	}
}

// relevant reports whether event is a write to the database or its WAL.
func (dw *DBWatcher) relevant(event fsnotify.Event) bool {
	if !dw.names[filepath.Base(event.Name)] {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
