package ingestion

import (
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pterm/pterm"
)

// ReloadWatcher monitors one log file and reports write events so the
// owning session can re-ingest it. Events are debounced: servers append
// in bursts and a reload per write would thrash the store.
type ReloadWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	events   chan string
	logger   *pterm.Logger
	debounce time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewReloadWatcher creates a watcher for the given file path
func NewReloadWatcher(path string, logger *pterm.Logger) (*ReloadWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.WithCaller().Error("Failed to create file watcher", logger.Args("error", err))
		return nil, err
	}

	if _, err := os.Stat(path); err != nil {
		watcher.Close()
		logger.WithCaller().Error("Cannot watch log file", logger.Args("path", path, "error", err))
		return nil, err
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		logger.WithCaller().Error("Failed to watch file", logger.Args("path", path, "error", err))
		return nil, err
	}

	rw := &ReloadWatcher{
		watcher:  watcher,
		path:     path,
		events:   make(chan string, 1),
		logger:   logger,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
	}

	rw.wg.Add(1)
	go rw.eventLoop()

	logger.Info("Watching log file for changes", logger.Args("path", path))
	return rw, nil
}

// Events delivers the path once per debounced burst of writes.
func (rw *ReloadWatcher) Events() <-chan string {
	return rw.events
}

// eventLoop coalesces raw fsnotify events into reload signals
func (rw *ReloadWatcher) eventLoop() {
	defer rw.wg.Done()

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-rw.stopCh:
			rw.logger.Debug("File watcher stopped")
			return

		case event, ok := <-rw.watcher.Events:
			if !ok {
				rw.logger.Warn("File watcher events channel closed")
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			rw.logger.Trace("File change detected",
				rw.logger.Args("path", event.Name, "op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(rw.debounce)
				timerCh = timer.C
			} else {
				timer.Reset(rw.debounce)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			select {
			case rw.events <- rw.path:
			default:
				// A reload is already pending; drop the duplicate.
			}

		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			rw.logger.Warn("File watcher error", rw.logger.Args("error", err))
		}
	}
}

// Stop shuts down the watcher
func (rw *ReloadWatcher) Stop() {
	close(rw.stopCh)
	rw.watcher.Close()
	rw.wg.Wait()
}
