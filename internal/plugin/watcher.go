package plugin

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// WatchHandler is called when a plugin file changes on disk.
type WatchHandler func(path string)

// Watcher monitors plugin directories for bundle changes.
//
// Registration is additive for the process lifetime, so the watcher
// does not hot-reload anything; it surfaces that a restart is needed
// to pick up changed bundles.
type Watcher struct {
	fsw     *fsnotify.Watcher
	handler WatchHandler
	log     zerolog.Logger
}

// NewWatcher creates a watcher over the given directories. Directories
// that do not exist are skipped.
func NewWatcher(dirs []string, handler WatchHandler, log zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	watched := 0
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			log.Debug().Str("dir", dir).Err(err).Msg("plugin dir not watchable; skipped")
			continue
		}
		watched++
	}
	if watched == 0 {
		fsw.Close()
		return nil, fmt.Errorf("no watchable plugin directories")
	}

	return &Watcher{fsw: fsw, handler: handler, log: log}, nil
}

// Run processes filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !isPluginFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.log.Info().
				Str("path", event.Name).
				Str("op", event.Op.String()).
				Msg("plugin bundle changed on disk; restart to apply")
			if w.handler != nil {
				w.handler(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("plugin watcher error")
		}
	}
}

func isPluginFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lua", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
