package config

import (
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kvfluent/client-go/pkg/behavior"
	"github.com/kvfluent/client-go/pkg/logging"
)

// Watcher hot-reloads a behaviors/system document from disk, swapping in a
// freshly-loaded *behavior.Registry on every change. Reload is atomic
// copy-on-write: callers that already hold a *behavior.Registry from
// before a reload keep resolving against the old snapshot undisturbed --
// nothing is mutated in place.
type Watcher struct {
	path         string
	pollInterval time.Duration
	logger       logging.Logger

	mu  sync.RWMutex
	reg *behavior.Registry

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher loads path once and begins watching it for changes. If
// fsnotify cannot establish a native watch (e.g. the path is on a network
// mount that doesn't support inotify/kqueue), the Watcher falls back to
// polling the file's mtime at pollInterval -- it never simply gives up on
// hot reload.
func NewWatcher(path string, pollInterval time.Duration, logger logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	reg, err := Load(data)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:         path,
		pollInterval: pollInterval,
		logger:       logger,
		reg:          reg,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}

	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		if watchErr := fsw.Add(path); watchErr == nil {
			w.fsw = fsw
		} else {
			_ = fsw.Close()
		}
	}

	go w.run()
	return w, nil
}

// Registry returns the currently active, fully-resolved Registry snapshot.
func (w *Watcher) Registry() *behavior.Registry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.reg
}

// Close stops watching and releases the fsnotify handle, if any.
func (w *Watcher) Close() error {
	close(w.stopCh)
	<-w.doneCh
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	var events <-chan fsnotify.Event
	var errs <-chan error
	if w.fsw != nil {
		events = w.fsw.Events
		errs = w.fsw.Errors
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	lastMod := w.statModTime()

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload()
				lastMod = w.statModTime()
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("config watcher: fsnotify error, falling back to polling", "error", err)
		case <-ticker.C:
			mod := w.statModTime()
			if !mod.Equal(lastMod) {
				lastMod = mod
				w.reload()
			}
		}
	}
}

func (w *Watcher) statModTime() time.Time {
	info, err := os.Stat(w.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("config watcher: reload read failed, keeping previous registry", "path", w.path, "error", err)
		return
	}
	reg, err := Load(data)
	if err != nil {
		w.logger.Warn("config watcher: reload parse failed, keeping previous registry", "path", w.path, "error", err)
		return
	}
	w.mu.Lock()
	w.reg = reg
	w.mu.Unlock()
	w.logger.Info("config watcher: reloaded", "path", w.path)
}
