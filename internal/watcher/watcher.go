// Package watcher observes a project's managed directory for external
// changes and publishes drift events when the reconciliation plan
// becomes actionable. It never mutates anything itself; applying a plan
// stays an explicit caller decision.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/centy-io/centy-daemon/internal/server/events"
	"github.com/centy-io/centy-daemon/pkg/constants"
	"github.com/centy-io/centy-daemon/pkg/manifest"
	"github.com/centy-io/centy-daemon/pkg/reconcile"
)

// Publisher is the event sink the watcher reports drift to.
type Publisher interface {
	Publish(eventType events.EventType, data any)
}

// Watcher monitors one project's .centy tree.
type Watcher struct {
	projectPath string
	reconciler  *reconcile.Service
	publisher   Publisher
	logger      zerolog.Logger
	debounce    time.Duration
}

// New creates a watcher for a project.
func New(projectPath string, reconciler *reconcile.Service, publisher Publisher, logger *zerolog.Logger) *Watcher {
	return &Watcher{
		projectPath: projectPath,
		reconciler:  reconciler,
		publisher:   publisher,
		logger:      logger.With().Str("project", projectPath).Logger(),
		debounce:    constants.WatcherDebounce,
	}
}

// Run watches until the context is cancelled. Filesystem events are
// debounced: editors produce bursts of writes and renames for a single
// save, and one plan per burst is enough.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	root := manifest.CentyPath(w.projectPath)
	if err := addRecursive(fsw, root); err != nil {
		return err
	}

	var timer *time.Timer
	var fired <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug().Msg("watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.ignore(event.Name) {
				continue
			}
			// New directories must be watched as they appear.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addRecursive(fsw, event.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fired = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watcher error")

		case <-fired:
			fired = nil
			w.checkDrift(ctx)
		}
	}
}

// checkDrift plans and publishes when anything is actionable.
func (w *Watcher) checkDrift(ctx context.Context) {
	plan, err := w.reconciler.Plan(ctx, w.projectPath)
	if err != nil {
		w.logger.Warn().Err(err).Msg("drift check failed")
		return
	}
	actionable := plan.ActionableCount()
	if actionable == 0 {
		return
	}

	w.logger.Info().
		Int("actionable", actionable).
		Bool("needs_decisions", plan.NeedsDecisions()).
		Msg("drift detected")
	w.publisher.Publish(events.DriftDetected, map[string]any{
		"projectPath":    w.projectPath,
		"actionable":     actionable,
		"needsDecisions": plan.NeedsDecisions(),
	})
}

// ignore filters the manifest document and in-flight temp files: the
// engine's own writes are not drift.
func (w *Watcher) ignore(name string) bool {
	base := filepath.Base(name)
	return base == constants.ManifestFile || strings.Contains(base, ".tmp-")
}

// addRecursive watches a directory and everything below it.
func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}
