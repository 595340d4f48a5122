// Package scheduler implements a bounded priority worker pool: tasks
// queue into one of three priority lanes and a fixed set of workers
// drains high-priority work before normal, and normal before low, with
// back-pressure applied by a bounded channel per lane. Shutdown uses a
// mutex-guarded running flag, a cancellable context and a WaitGroup.
package scheduler

import (
	"context"
	"sync"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driving"
	"github.com/context-cache/ctxc/internal/logger"
)

var _ driving.Scheduler = (*Pool)(nil)

type Pool struct {
	workers int
	queueLen int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	high   chan driving.Task
	normal chan driving.Task
	low    chan driving.Task
}

func New(workers, queueLen int) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueLen <= 0 {
		queueLen = 64
	}
	return &Pool{
		workers:  workers,
		queueLen: queueLen,
		high:     make(chan driving.Task, queueLen),
		normal:   make(chan driving.Task, queueLen),
		low:      make(chan driving.Task, queueLen),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx)
	}
}

func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

// Submit enqueues t onto its priority lane, returning an error only if the
// lane is full — callers see back-pressure rather than blocking forever.
func (p *Pool) Submit(t driving.Task) error {
	lane := p.laneFor(t.Priority)
	select {
	case lane <- t:
		return nil
	default:
		return domain.ErrRateLimited
	}
}

func (p *Pool) laneFor(pr domain.Priority) chan driving.Task {
	switch pr {
	case domain.PriorityHigh:
		return p.high
	case domain.PriorityLow:
		return p.low
	default:
		return p.normal
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-p.high:
			p.run(ctx, t)
		default:
			select {
			case t := <-p.normal:
				p.run(ctx, t)
				continue
			default:
			}
			select {
			case <-ctx.Done():
				return
			case t := <-p.high:
				p.run(ctx, t)
			case t := <-p.normal:
				p.run(ctx, t)
			case t := <-p.low:
				p.run(ctx, t)
			}
		}
	}
}

func (p *Pool) run(ctx context.Context, t driving.Task) {
	if t.Run == nil {
		return
	}
	if err := t.Run(ctx); err != nil {
		logger.Error("scheduled task failed: %v", err)
	}
}
