// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/digestd/lib/digest"
	"github.com/bureau-foundation/digestd/lib/protocol"
	"github.com/bureau-foundation/digestd/lib/schedule"
)

// process is the worker pool's ProcessFunc: it runs one dequeued job
// to its Response.
func (e *Engine) process(ctx context.Context, worker int, job *schedule.Job) {
	logger := e.logger.With(
		"worker", worker,
		"job_id", job.ID,
		"requester", job.Requester,
		"slot", job.Slot,
	)
	response := e.execute(ctx, logger, job)
	e.finish(job, response)

	if response.OK() {
		logger.Debug("job completed", "digest", response.Digest)
	} else {
		logger.Info("job failed", "status", response.Status.String(), "info", response.Info)
	}
}

// execute holds the slot gate around the capacity check and the digest.
// The gate is released before execute returns whenever Acquire
// succeeded.
func (e *Engine) execute(ctx context.Context, logger *slog.Logger, job *schedule.Job) protocol.Response {
	gate, err := e.area.Gate(job.Slot)
	if err != nil {
		return protocol.Failure(job.Requester, protocol.StatusGateFailed, err.Error())
	}

	waitStart := e.clock.Now()
	if err := gate.Acquire(ctx); err != nil {
		if ctx.Err() != nil {
			return protocol.Failure(job.Requester, protocol.StatusCancelled, "cancelled waiting for staging gate")
		}
		return protocol.Failure(job.Requester, protocol.StatusGateFailed, err.Error())
	}
	e.metrics.ObserveGateWait(e.clock.Now().Sub(waitStart))
	defer func() {
		if err := gate.Release(); err != nil {
			logger.Error("releasing staging gate", "error", err)
		}
	}()

	capacity := e.area.SlotSize()
	if job.Length > uint64(capacity) {
		return protocol.Failure(job.Requester, protocol.StatusTooLarge,
			fmt.Sprintf("declared length %d exceeds capacity %d", job.Length, capacity))
	}

	region, err := e.area.Slot(job.Slot)
	if err != nil {
		return protocol.Failure(job.Requester, protocol.StatusGateFailed, err.Error())
	}

	sum, err := e.executor.Compute(region, int64(job.Length), job.Encoding)
	if err != nil {
		return protocol.Failure(job.Requester, statusFor(err), err.Error())
	}
	return protocol.Success(job.Requester, sum.String())
}

// statusFor maps a digest failure to its response status.
func statusFor(err error) protocol.Status {
	if errors.Is(err, digest.ErrOutOfRange) {
		return protocol.StatusTooLarge
	}
	var stageErr *digest.StageError
	if errors.As(err, &stageErr) {
		switch stageErr.Stage {
		case digest.StageInitialize:
			return protocol.StatusInitFailed
		case digest.StageUpdate:
			return protocol.StatusUpdateFailed
		case digest.StageFinalize:
			return protocol.StatusFinalizeFailed
		}
	}
	return protocol.StatusUpdateFailed
}

// finish releases the job's lease, records it, and delivers the
// response.
func (e *Engine) finish(job *schedule.Job, response protocol.Response) {
	if e.leases != nil {
		e.leases.Release(job.Slot, job.LeaseToken)
	}
	e.inFlight.Add(-1)

	e.metrics.JobCompleted(response.Status.String())
	e.metrics.ObserveJob(e.clock.Now().Sub(job.EnqueuedAt))

	if !e.mailbox.deliver(response) {
		e.logger.Warn("response dropped, requester not waiting",
			"requester", job.Requester,
			"job_id", job.ID,
			"status", response.Status.String(),
		)
	}
}
