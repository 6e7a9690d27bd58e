package watchconfig

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ConfigurationModified is emitted every time the watched file changes and
// re-parses successfully (spec.md §4.6's "ConfigurationModified event").
type ConfigurationModified struct {
	Config WatchdogConfig
}

// Watcher re-reads path on every write/create event and publishes the
// resulting WatchdogConfig on Events. A failed re-parse is logged and
// skipped; the previously applied configuration stands until a valid file
// appears.
type Watcher struct {
	path   string
	logger *slog.Logger
	fsw    *fsnotify.Watcher

	Events chan ConfigurationModified
}

// NewWatcher starts watching the directory containing path (fsnotify
// watches directories, not bare files, so renames and atomic saves are
// still observed).
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:   path,
		logger: logger,
		fsw:    fsw,
		Events: make(chan ConfigurationModified, 1),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				close(w.Events)
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Error("watchconfig: reloading configuration failed", "path", w.path, "error", err)
				continue
			}
			select {
			case w.Events <- ConfigurationModified{Config: cfg}:
			default:
				// A reload is already pending; the newer snapshot wins by
				// draining then resending.
				select {
				case <-w.Events:
				default:
				}
				w.Events <- ConfigurationModified{Config: cfg}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watchconfig: watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
