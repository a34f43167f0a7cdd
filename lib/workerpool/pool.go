// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/digestd/lib/schedule"
)

// Source is the blocking job supply a worker drains. *schedule.Queue
// satisfies it.
type Source interface {
	Dequeue(ctx context.Context) (*schedule.Job, error)
}

// ProcessFunc handles one dequeued job. worker identifies the calling
// worker for logging. ctx is cancelled when the pool is stopped.
type ProcessFunc func(ctx context.Context, worker int, job *schedule.Job)

// Outcome reports what a Resize call did.
type Outcome int

const (
	// Grown means new workers were started.
	Grown Outcome = iota
	// Unchanged means the requested count was at or below the current
	// size.
	Unchanged
	// Ignored means the pool was not running or the count was not
	// positive.
	Ignored
)

func (o Outcome) String() string {
	switch o {
	case Grown:
		return "grown"
	case Unchanged:
		return "unchanged"
	case Ignored:
		return "ignored"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

var (
	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("worker pool already initialized")

	// ErrInvalidSize is returned by Initialize for a count below one.
	ErrInvalidSize = errors.New("worker pool size must be at least 1")
)

type worker struct {
	id     int
	cancel context.CancelFunc
}

// Pool is a growth-only set of worker goroutines.
type Pool struct {
	source  Source
	process ProcessFunc
	logger  *slog.Logger

	// mu guards the worker list, the lifetime context and the stopped
	// flag. Resize and Initialize hold it while spawning.
	mu      sync.Mutex
	base    context.Context
	stop    context.CancelFunc
	workers []*worker
	stopped bool

	live    atomic.Int64
	running sync.WaitGroup
}

// New returns a pool that feeds jobs from source to process. No worker
// runs until Initialize.
func New(source Source, process ProcessFunc, logger *slog.Logger) *Pool {
	return &Pool{
		source:  source,
		process: process,
		logger:  logger,
	}
}

// Initialize starts n workers whose contexts derive from ctx. It must
// be called exactly once, before any job traffic.
func (p *Pool) Initialize(ctx context.Context, n int) error {
	if n < 1 {
		return ErrInvalidSize
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.base != nil {
		return ErrAlreadyInitialized
	}
	p.base, p.stop = context.WithCancel(ctx)
	p.spawnLocked(n)
	p.logger.Info("worker pool started", "workers", n)
	return nil
}

// Resize grows the pool to count workers. When count is at or below
// the current size nothing changes and the shrink attempt is logged.
// Resize never fails; the Outcome reports what happened.
func (p *Pool) Resize(count int) Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.base == nil || p.stopped {
		p.logger.Warn("resize ignored, worker pool not running", "requested", count)
		return Ignored
	}
	if count < 1 {
		p.logger.Warn("resize ignored, count must be positive", "requested", count)
		return Ignored
	}

	current := len(p.workers)
	if count <= current {
		p.logger.Info("shrinking the worker pool is not supported",
			"requested", count,
			"size", current,
		)
		return Unchanged
	}

	p.spawnLocked(count - current)
	p.logger.Info("worker pool grown", "previous", current, "size", count)
	return Grown
}

// spawnLocked starts n workers. Caller holds p.mu.
func (p *Pool) spawnLocked(n int) {
	for range n {
		ctx, cancel := context.WithCancel(p.base)
		w := &worker{id: len(p.workers) + 1, cancel: cancel}
		p.workers = append(p.workers, w)

		p.running.Add(1)
		p.live.Add(1)
		go func() {
			defer p.running.Done()
			defer p.live.Add(-1)
			p.loop(ctx, w.id)
		}()
	}
}

// loop is the body of one worker.
func (p *Pool) loop(ctx context.Context, id int) {
	for {
		job, err := p.source.Dequeue(ctx)
		if err != nil {
			if !errors.Is(err, schedule.ErrClosed) && ctx.Err() == nil {
				p.logger.Error("dequeue failed, worker exiting", "worker", id, "error", err)
			}
			return
		}
		p.run(ctx, id, job)
	}
}

// run calls the process function for one job, containing any panic.
func (p *Pool) run(ctx context.Context, id int, job *schedule.Job) {
	defer func() {
		if recovered := recover(); recovered != nil {
			p.logger.Error("job processing panicked",
				"worker", id,
				"job_id", job.ID,
				"requester", job.Requester,
				"panic", fmt.Sprint(recovered),
				"stack", string(debug.Stack()),
			)
		}
	}()
	p.process(ctx, id, job)
}

// Size returns the recorded pool size. It never decreases.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// Live returns the number of worker goroutines still running.
func (p *Pool) Live() int {
	return int(p.live.Load())
}

// Wait blocks until every worker has exited or ctx ends. Workers exit
// once the source is closed and they finish their current job, or
// after Stop.
func (p *Pool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels every worker's context. Jobs in progress observe the
// cancellation through the context passed to ProcessFunc. Later Resize
// calls are ignored. Stop does not wait; use Wait.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	p.stopped = true
	for _, w := range p.workers {
		w.cancel()
	}
	if p.stop != nil {
		p.stop()
	}
}
