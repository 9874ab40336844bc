package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stayops-systems/sentinel/internal/logging"
)

// debounceWindow coalesces the bursts of writes editors and config
// management tools produce for a single logical change.
const debounceWindow = 500 * time.Millisecond

// Watcher reloads rule packs when the pack directory changes. A reload
// that fails validation is logged and discarded; the stores keep the
// last good rule set.
type Watcher struct {
	dir          string
	correlations *CorrelationStore
	responses    *ResponseStore
	logger       *logging.Logger
}

// NewWatcher creates a pack directory watcher.
func NewWatcher(dir string, correlations *CorrelationStore, responses *ResponseStore, logger *logging.Logger) *Watcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Watcher{
		dir:          dir,
		correlations: correlations,
		responses:    responses,
		logger:       logger.With(logging.Component("rules-watcher")),
	}
}

// Run watches until ctx is cancelled. It blocks; run it in a goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				timer.Reset(debounceWindow)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", logging.Error(err))
		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	correlations, responses, err := LoadDir(w.dir)
	if err != nil {
		w.logger.Warn("rule pack reload rejected", logging.Error(err))
		return
	}
	if err := w.correlations.Replace(correlations); err != nil {
		w.logger.Warn("correlation rule reload rejected", logging.Error(err))
		return
	}
	if err := w.responses.Replace(responses); err != nil {
		w.logger.Warn("response rule reload rejected", logging.Error(err))
		return
	}
	w.logger.Info("rule packs reloaded",
		"correlation_rules", len(correlations),
		"response_rules", len(responses))
}
