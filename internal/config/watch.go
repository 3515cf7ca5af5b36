package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/twin2multicloud/deployer/internal/logging"
)

// Watcher reloads config_inter_cloud.json whenever another process
// (e.g. a concurrently running sender-side deploy) writes to it.
// Optional: callers that never share a project directory across
// processes can ignore this entirely.
type Watcher struct {
	fsw *fsnotify.Watcher
	log *logging.Logger
}

// WatchInterCloud starts watching projectPath/config_inter_cloud.json,
// invoking onChange with the freshly reloaded file on every write.
// The returned Watcher must be closed by the caller.
func WatchInterCloud(projectPath string, log *logging.Logger, onChange func(*InterCloudFile)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(projectPath); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, log: log}
	go w.loop(projectPath, onChange)
	return w, nil
}

func (w *Watcher) loop(projectPath string, onChange func(*InterCloudFile)) {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != "config_inter_cloud.json" || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			file, err := LoadInterCloud(projectPath)
			if err != nil {
				if w.log != nil {
					w.log.Warn("failed to reload config_inter_cloud.json after change", "error", err.Error())
				}
				continue
			}
			onChange(file)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.log != nil {
				w.log.Warn("config watcher error", "error", err.Error())
			}
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error { return w.fsw.Close() }
