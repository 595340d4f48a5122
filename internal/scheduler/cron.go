// Cron wires an optional periodic reconciliation sweep on top of the
// watcher's on-demand Reconcile, using robfig/cron/v3, so a source that
// misses fsnotify events — a mounted network share, a sync client that
// writes without triggering inotify — still gets swept on a schedule
// rather than drifting indefinitely out of date.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/context-cache/ctxc/internal/core/ports/driving"
	"github.com/context-cache/ctxc/internal/logger"
)

type Cron struct {
	c *cron.Cron
}

// NewCron schedules watcher.Reconcile to run on expr (a standard 5-field
// cron expression). An empty expr disables periodic reconciliation
// entirely — the watcher's fsnotify + startup sweep remains in effect.
func NewCron(expr string, watcher driving.Watcher) (*Cron, error) {
	c := cron.New()
	if expr != "" {
		_, err := c.AddFunc(expr, func() {
			if err := watcher.Reconcile(context.Background()); err != nil {
				logger.Warn("periodic reconcile failed: %v", err)
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return &Cron{c: c}, nil
}

func (c *Cron) Start() { c.c.Start() }
func (c *Cron) Stop()  { c.c.Stop() }
