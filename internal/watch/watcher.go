// Package watch re-runs an analysis when checkpoint log directories change.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/section-speed/backend/internal/parser"
)

// DefaultDebounce collapses bursts of writes (a camera flushing a file, a
// copy of many files) into one run.
const DefaultDebounce = 2 * time.Second

// Trigger is called after relevant changes settle.
type Trigger func(ctx context.Context) error

// Watcher monitors log directories for checkpoint files.
type Watcher struct {
	dirs     []string
	prefixes []string
	debounce time.Duration
	trigger  Trigger
}

// New creates a watcher over dirs. Only .txt files whose base name starts
// with one of prefixes count as changes.
func New(dirs, prefixes []string, debounce time.Duration, trigger Trigger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{dirs: dirs, prefixes: prefixes, debounce: debounce, trigger: trigger}
}

// Run blocks until ctx is done, calling the trigger once per settled burst
// of changes. Trigger errors are logged, not returned.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, dir := range w.dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	log.Info().Strs("dirs", w.dirs).Dur("debounce", w.debounce).Msg("watching for log changes")

	// Reset never delivers a stale tick (Go 1.23 timer semantics)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 || !w.relevant(evt.Name) {
				continue
			}
			log.Debug().Str("file", evt.Name).Str("op", evt.Op.String()).Msg("log change")
			timer.Reset(w.debounce)

		case <-timer.C:
			if err := w.trigger(ctx); err != nil {
				log.Error().Err(err).Msg("re-analysis failed")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) relevant(path string) bool {
	for _, p := range w.prefixes {
		if parser.MatchesSource(path, p) {
			return true
		}
	}
	return false
}
