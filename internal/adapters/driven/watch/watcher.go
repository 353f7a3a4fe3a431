// Package watch notifies when a dataset file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/hcgarun/internal/core/ports/driven"
	"github.com/custodia-labs/hcgarun/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.DatasetWatcher = (*Watcher)(nil)

// DefaultSettle is how long the dataset file must stay quiet after a change
// before a notification is sent. Writing a pickle produces a burst of write
// events; the notification follows the last one.
const DefaultSettle = 2 * time.Second

// Watcher watches a dataset file through its parent directory, so the file
// may be created, replaced or renamed into place after watching starts.
type Watcher struct {
	settle time.Duration
}

// NewWatcher creates a watcher. A non-positive settle uses DefaultSettle.
// Notifications are also spaced at least settle apart.
func NewWatcher(settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{settle: settle}
}

// Watch emits one value per settled change to the file at path.
// At most one notification is buffered; changes made while it is pending
// are folded into it.
func (w *Watcher) Watch(ctx context.Context, path string) (<-chan struct{}, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	out := make(chan struct{}, 1)
	gap := rate.NewLimiter(rate.Every(w.settle), 1)

	go func() {
		defer close(out)
		defer fsw.Close()

		var (
			quiet  *time.Timer
			settle <-chan time.Time // nil while no change is pending
		)
		defer func() {
			if quiet != nil {
				quiet.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logger.Warn("watch %s: %v", abs, err)
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if !relevant(ev, abs) {
					continue
				}
				logger.Debug("watch: %s on %s", ev.Op, ev.Name)
				if quiet == nil {
					quiet = time.NewTimer(w.settle)
				} else {
					quiet.Reset(w.settle)
				}
				settle = quiet.C
			case <-settle:
				settle = nil
				if err := gap.Wait(ctx); err != nil {
					return
				}
				logger.Debug("watch: %s settled", abs)
				select {
				case out <- struct{}{}:
				default:
					// a notification is already pending
				}
			}
		}
	}()

	return out, nil
}

// relevant reports whether ev changes the watched file's content.
func relevant(ev fsnotify.Event, target string) bool {
	name, err := filepath.Abs(ev.Name)
	if err != nil || name != target {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename)
}
