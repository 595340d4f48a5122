package driving

import (
	"context"

	"github.com/context-cache/ctxc/internal/core/domain"
)

// Task is one unit of scheduled work submitted to the Scheduler.
type Task struct {
	Priority domain.Priority
	Run      func(ctx context.Context) error
}

// Scheduler is the driving port for the bounded priority worker pool.
// Submit blocks only long enough to enqueue; Run executes asynchronously.
type Scheduler interface {
	Start(ctx context.Context)
	Submit(t Task) error
	Stop()
}
