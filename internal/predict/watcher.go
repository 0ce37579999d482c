package predict

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Watcher reloads the registry whenever the artifact file changes on disk.
// A reload that fails for any reason is logged and leaves the current
// artifact untouched.
type Watcher struct {
	registry *Registry
	path     string
	logger   log.Logger
	fw       *fsnotify.Watcher

	closeOnce sync.Once
	done      chan struct{}
}

// WatchFile watches the parent directory of path, which also catches
// editors and trainers that replace the file by renaming a temp file over
// it. The initial load is the caller's responsibility.
func WatchFile(registry *Registry, path string, logger log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve model path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create model watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		registry: registry,
		path:     abs,
		logger:   logger,
		fw:       fw,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || name != w.path {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if err := w.registry.LoadFile(w.path); err != nil {
				level.Warn(w.logger).Log("msg", "model reload failed, keeping current artifact", "path", w.path, "err", err)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			level.Warn(w.logger).Log("msg", "model watcher error", "err", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fw.Close()
	})
	return err
}
