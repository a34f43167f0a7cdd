// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/digestd/lib/clock"
	"github.com/bureau-foundation/digestd/lib/digest"
	"github.com/bureau-foundation/digestd/lib/metrics"
	"github.com/bureau-foundation/digestd/lib/protocol"
	"github.com/bureau-foundation/digestd/lib/schedule"
	"github.com/bureau-foundation/digestd/lib/staging"
	"github.com/bureau-foundation/digestd/lib/workerpool"
)

var (
	// ErrShuttingDown is returned by Dispatch and Reserve once
	// shutdown has begun.
	ErrShuttingDown = errors.New("digestd is shutting down")

	// ErrDuplicateRequester means a submission arrived for a requester
	// identity that already has one in flight.
	ErrDuplicateRequester = errors.New("requester already has a job in flight")

	// ErrLeasesDisabled is returned by Reserve in shared staging mode.
	ErrLeasesDisabled = errors.New("staging leases are only available in leased mode")
)

// Mode selects the staging discipline.
type Mode string

const (
	// SharedStaging is one slot behind one gate, released by the
	// producer right after submitting.
	SharedStaging Mode = "shared"

	// LeasedStaging binds each job to its own slot until a worker is
	// done with it.
	LeasedStaging Mode = "leased"
)

// Config configures an Engine. Area, Executor and Logger are required.
type Config struct {
	Policy  schedule.Policy
	Workers int

	// Area is the staging area. Its slot size is the capacity C every
	// declared length is checked against.
	Area staging.Area

	// StagingPath is reported in Status so clients can map the area.
	StagingPath string

	Mode     Mode
	LeaseTTL time.Duration

	Executor *digest.Executor

	// DrainTimeout is how long running jobs may continue after
	// shutdown begins.
	DrainTimeout time.Duration

	// Clock defaults to the real clock.
	Clock  clock.Clock
	Logger *slog.Logger
}

// Engine is the scheduler context shared by the dispatcher and every
// worker.
type Engine struct {
	policy       schedule.Policy
	workers      int
	area         staging.Area
	stagingPath  string
	mode         Mode
	executor     *digest.Executor
	drainTimeout time.Duration
	clock        clock.Clock
	logger       *slog.Logger

	queue   *schedule.Queue
	pool    *workerpool.Pool
	leases  *staging.Leases
	mailbox *mailbox
	metrics *metrics.Collectors

	inbound  chan protocol.Message
	ready    chan struct{}
	stopping chan struct{}
	finished chan struct{}
	started  time.Time

	runOnce  sync.Once
	inFlight atomic.Int64
}

// New builds an Engine. No worker runs until Run.
func New(config Config) (*Engine, error) {
	if config.Area == nil {
		return nil, errors.New("engine: Area is required")
	}
	if config.Executor == nil {
		return nil, errors.New("engine: Executor is required")
	}
	if config.Logger == nil {
		return nil, errors.New("engine: Logger is required")
	}
	if config.Workers < 1 {
		return nil, fmt.Errorf("engine: initial pool size must be at least 1, got %d", config.Workers)
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}

	e := &Engine{
		policy:       config.Policy,
		workers:      config.Workers,
		area:         config.Area,
		stagingPath:  config.StagingPath,
		mode:         config.Mode,
		executor:     config.Executor,
		drainTimeout: config.DrainTimeout,
		clock:        config.Clock,
		logger:       config.Logger,
		queue:        schedule.NewQueue(config.Policy),
		mailbox:      newMailbox(),
		inbound:      make(chan protocol.Message),
		ready:        make(chan struct{}),
		stopping:     make(chan struct{}),
		finished:     make(chan struct{}),
	}

	switch config.Mode {
	case SharedStaging:
		if config.Area.Slots() != 1 {
			return nil, fmt.Errorf("engine: shared staging needs exactly one slot, area has %d", config.Area.Slots())
		}
	case LeasedStaging:
		if config.LeaseTTL <= 0 {
			return nil, fmt.Errorf("engine: lease TTL must be positive, got %s", config.LeaseTTL)
		}
		e.leases = staging.NewLeases(config.Area.Slots(), config.LeaseTTL, config.Clock)
	default:
		return nil, fmt.Errorf("engine: unknown staging mode %q", config.Mode)
	}

	e.pool = workerpool.New(e.queue, e.process, config.Logger)

	sources := metrics.Sources{
		QueueDepth:  e.queue.Len,
		PoolWorkers: e.pool.Size,
		LiveWorkers: e.pool.Live,
	}
	if e.leases != nil {
		sources.FreeSlots = e.leases.Free
	}
	e.metrics = metrics.New(sources)
	return e, nil
}

// Metrics returns the engine's Prometheus collectors.
func (e *Engine) Metrics() *metrics.Collectors { return e.metrics }

// Ready is closed once the initial workers are running and Dispatch is
// served.
func (e *Engine) Ready() <-chan struct{} { return e.ready }

// Done is closed when Run has finished shutting down.
func (e *Engine) Done() <-chan struct{} { return e.finished }

// Run starts the worker pool and serves the dispatcher until ctx ends,
// then performs the shutdown sequence. Run may be called once.
func (e *Engine) Run(ctx context.Context) error {
	err := errors.New("engine: Run called more than once")
	e.runOnce.Do(func() { err = e.run(ctx) })
	return err
}

func (e *Engine) run(ctx context.Context) error {
	// Workers outlive ctx so that they can drain; shutdown cancels
	// them explicitly.
	workerCtx, cancelWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWorkers()

	if err := e.pool.Initialize(workerCtx, e.workers); err != nil {
		close(e.finished)
		return fmt.Errorf("starting worker pool: %w", err)
	}
	e.started = e.clock.Now()
	close(e.ready)

	e.logger.Info("engine running",
		"policy", e.policy.String(),
		"workers", e.workers,
		"staging_mode", string(e.mode),
		"slots", e.area.Slots(),
		"slot_size", e.area.SlotSize(),
		"algorithm", string(e.executor.Algorithm()),
	)

	for {
		select {
		case message := <-e.inbound:
			e.dispatch(message)
		case <-ctx.Done():
			e.shutdown()
			return nil
		}
	}
}

// shutdown runs the ordered stop sequence.
func (e *Engine) shutdown() {
	close(e.stopping)
	e.logger.Info("engine shutting down",
		"queued", e.queue.Len(),
		"in_flight", e.inFlight.Load(),
		"waiting_requesters", e.mailbox.waiting(),
	)

	for _, job := range e.queue.Close() {
		e.finish(job, protocol.Failure(job.Requester, protocol.StatusCancelled, "server shutting down"))
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), e.drainTimeout)
	defer cancel()
	if err := e.pool.Wait(drainCtx); err != nil {
		e.logger.Warn("drain timeout elapsed, cancelling running jobs",
			"drain_timeout", e.drainTimeout,
			"in_flight", e.inFlight.Load(),
		)
	}
	e.pool.Stop()
	e.pool.Wait(context.Background())

	close(e.finished)
	e.logger.Info("engine stopped")
}

// Reserve leases a free staging slot, waiting until one is free or ctx
// ends.
func (e *Engine) Reserve(ctx context.Context) (protocol.Reservation, error) {
	if e.leases == nil {
		return protocol.Reservation{}, ErrLeasesDisabled
	}
	select {
	case <-e.stopping:
		return protocol.Reservation{}, ErrShuttingDown
	default:
	}

	lease, err := e.leases.Reserve(ctx)
	if err != nil {
		return protocol.Reservation{}, err
	}
	e.logger.Debug("slot reserved", "slot", lease.Slot)
	return protocol.Reservation{
		Slot:            lease.Slot,
		Token:           lease.Token,
		ExpiresInMillis: lease.ExpiresAt.Sub(e.clock.Now()).Milliseconds(),
	}, nil
}

// CancelReservation returns a reserved slot that will not be submitted.
// A lease already bound to a submission is refused with
// staging.ErrLeaseBound; its slot comes back when the job finishes. An
// expired lease is ignored.
func (e *Engine) CancelReservation(slot int, token uint64) error {
	if e.leases == nil {
		return ErrLeasesDisabled
	}
	return e.leases.Cancel(slot, token)
}

// Status reports the engine's current state.
func (e *Engine) Status() protocol.ServerStatus {
	status := protocol.ServerStatus{
		Policy:      e.policy.String(),
		PoolSize:    e.pool.Size(),
		LiveWorkers: e.pool.Live(),
		QueueDepth:  e.queue.Len(),
		InFlight:    int(e.inFlight.Load()),
		Algorithm:   string(e.executor.Algorithm()),
		Staging: protocol.StagingLayout{
			Path:     e.stagingPath,
			Mode:     string(e.mode),
			SlotSize: e.area.SlotSize(),
			Slots:    e.area.Slots(),
		},
	}
	if e.leases != nil {
		status.FreeSlots = e.leases.Free()
	}
	select {
	case <-e.ready:
		status.UptimeSeconds = e.clock.Now().Sub(e.started).Seconds()
	default:
	}
	return status
}
