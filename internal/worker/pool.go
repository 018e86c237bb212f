// Package worker runs fire-and-forget background jobs. Submit returns
// immediately; a failed job is logged once and never retried, and the
// submitter never observes the outcome.
package worker

import (
	"context"
	"log/slog"
	"sync"
)

// Job is one unit of background work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

type Pool struct {
	jobs    chan Job
	workers int
	logger  *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewPool(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
}

// Submit enqueues a job and returns immediately. When the queue is full the
// job is dropped with a log line rather than blocking the caller.
func (p *Pool) Submit(job Job) {
	select {
	case p.jobs <- job:
	default:
		p.logger.Warn("job queue full, dropping job", "job", job.Name)
	}
}

// Stop drains queued jobs and waits for in-flight work to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	cancel := p.cancel
	p.mu.Unlock()

	close(p.jobs)
	p.wg.Wait()
	cancel()
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()
	for job := range p.jobs {
		if err := job.Run(ctx); err != nil {
			p.logger.Error("background job failed", "job", job.Name, "error", err)
		}
	}
}
