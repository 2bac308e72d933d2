package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher monitors the Claude projects directory and schedules a refresh
// whenever a log file changes.
type Watcher struct {
	projectsDir string
	schedule    func()
	logger      zerolog.Logger
	fs          *fsnotify.Watcher
	stopCh      chan struct{}
}

// New creates a watcher rooted at the Claude directory. schedule is called
// on every relevant change; callers pass a debounced refresh.
func New(claudeDir string, schedule func(), logger zerolog.Logger) *Watcher {
	return &Watcher{
		projectsDir: filepath.Join(claudeDir, "projects"),
		schedule:    schedule,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
}

// Start begins watching the projects directory and every slug directory
// under it. New slug directories are picked up as they appear.
func (w *Watcher) Start() error {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w.fs = fs

	if err := fs.Add(w.projectsDir); err != nil {
		fs.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	// Watch existing slug directories; log files live one level down
	entries, err := os.ReadDir(w.projectsDir)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if err := fs.Add(filepath.Join(w.projectsDir, entry.Name())); err != nil {
				w.logger.Warn().Err(err).Str("dir", entry.Name()).Msg("failed to watch project directory")
			}
		}
	}

	go w.watchLoop()

	w.logger.Info().Str("dir", w.projectsDir).Msg("watching for log changes")
	return nil
}

// Stop terminates the watch loop.
func (w *Watcher) Stop() {
	close(w.stopCh)
	if w.fs != nil {
		w.fs.Close()
	}
}

// shouldSchedule reports whether an event changes log content. Remove
// counts: a deleted file's events must drop out of the snapshot.
func shouldSchedule(event fsnotify.Event) bool {
	if !strings.HasSuffix(event.Name, ".jsonl") {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}

			// A new slug directory must itself be watched
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.fs.Add(event.Name); err != nil {
						w.logger.Warn().Err(err).Str("dir", event.Name).Msg("failed to watch new directory")
					}
					continue
				}
			}

			if !shouldSchedule(event) {
				continue
			}

			w.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("log file changed")
			w.schedule()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("file watcher error")

		case <-w.stopCh:
			return
		}
	}
}
