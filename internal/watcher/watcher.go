// Package watcher implements the filesystem watcher: fsnotify events
// debounced by 500ms and batched per source before being handed to the
// ingest pipeline, plus a startup reconciliation sweep that diffs each
// source's current file listing against the store.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
	"github.com/context-cache/ctxc/internal/core/ports/driving"
	"github.com/context-cache/ctxc/internal/logger"
)

var _ driving.Watcher = (*Watcher)(nil)

const debounceWindow = 500 * time.Millisecond

type Watcher struct {
	store   driven.Store
	ingest  driving.IngestService
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	pending map[string][]string // sourceID -> debounced paths
	mu      sync.Mutex
	timer   *time.Timer
}

func New(store driven.Store, ingest driving.IngestService) *Watcher {
	return &Watcher{store: store, ingest: ingest, pending: make(map[string][]string)}
}

func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw

	sources, err := w.store.ListSources(ctx)
	if err != nil {
		return err
	}
	for _, src := range sources {
		if src.Kind == domain.SourceKindFolder {
			if err := fsw.Add(src.URI); err != nil {
				logger.Warn("watch %s: %v", src.URI, err)
			}
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go w.loop(runCtx, sources)

	return w.Reconcile(ctx)
}

func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) loop(ctx context.Context, sources []domain.Source) {
	defer w.wg.Done()
	sourceForPath := sourceResolver(sources)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			srcID := sourceForPath(ev.Name)
			if srcID == "" {
				continue
			}
			w.debounce(ctx, srcID, ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error: %v", err)
		}
	}
}

func (w *Watcher) debounce(ctx context.Context, sourceID, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[sourceID] = append(w.pending[sourceID], path)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceWindow, func() { w.flush(ctx) })
}

func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string][]string)
	w.mu.Unlock()

	for sourceID, paths := range batch {
		if _, err := w.ingest.IngestPaths(ctx, sourceID, dedupe(paths), domain.PriorityNormal); err != nil {
			logger.Error("watcher ingest %s: %v", sourceID, err)
		}
	}
}

// Reconcile walks every folder source's current listing and ingests
// anything the store doesn't already have, covering changes made while
// the process was not running.
func (w *Watcher) Reconcile(ctx context.Context) error {
	sources, err := w.store.ListSources(ctx)
	if err != nil {
		return err
	}
	for _, src := range sources {
		if src.Kind != domain.SourceKindFolder {
			continue
		}
		if _, err := w.ingest.IngestSource(ctx, src.ID, domain.PriorityLow); err != nil {
			logger.Warn("reconcile source %s: %v", src.ID, err)
		}
	}
	return nil
}

func sourceResolver(sources []domain.Source) func(path string) string {
	return func(path string) string {
		var best domain.Source
		bestLen := -1
		for _, src := range sources {
			if src.Kind != domain.SourceKindFolder {
				continue
			}
			rel, err := filepath.Rel(src.URI, path)
			if err != nil || rel == ".." || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator) {
				continue
			}
			if len(src.URI) > bestLen {
				bestLen = len(src.URI)
				best = src
			}
		}
		return best.ID
	}
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
