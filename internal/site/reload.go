package site

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher re-parses templates loaded from a directory whenever a template
// file under it changes. Bursts of events are coalesced.
type Watcher struct {
	dir       string
	templates *Templates
	watcher   *fsnotify.Watcher
	debounce  time.Duration
	logger    zerolog.Logger
}

func NewWatcher(dir string, templates *Templates, logger zerolog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create template watcher: %w", err)
	}
	// fsnotify is not recursive; watch every directory under dir.
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch template dir %s: %w", dir, err)
	}
	return &Watcher{
		dir:       dir,
		templates: templates,
		watcher:   w,
		debounce:  150 * time.Millisecond,
		logger:    logger.With().Str("component", "template_watcher").Logger(),
	}, nil
}

// Run blocks until ctx is done, reloading templates after changes.
func (w *Watcher) Run(ctx context.Context) {
	defer func() { _ = w.watcher.Close() }()
	w.logger.Info().Str("dir", w.dir).Msg("watching templates for changes")

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".html") || event.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("template changed")
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("template watcher error")

		case <-pending:
			pending = nil
			if err := w.templates.Reload(); err != nil {
				w.logger.Error().Err(err).Msg("template reload failed; keeping previous templates")
				continue
			}
			w.logger.Info().Msg("templates reloaded")
		}
	}
}
