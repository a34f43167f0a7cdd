// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"

	"github.com/bureau-foundation/digestd/lib/protocol"
	"github.com/bureau-foundation/digestd/lib/schedule"
	"github.com/bureau-foundation/digestd/lib/staging"
)

// Dispatch hands message to the dispatcher. For a job submission it
// then waits for that job's Response and returns it; a job that the
// dispatcher or a worker rejects still produces a Response, with a
// non-zero status. For a management message it returns a nil Response
// once the dispatcher has taken the message: resize commands are not
// acknowledged.
//
// The error return is reserved for transport-level outcomes: ctx
// ending first, or ErrShuttingDown. A requester whose wait ends with
// ctx keeps its identity reserved until the abandoned job is answered;
// resubmitting before then is rejected as a duplicate.
func (e *Engine) Dispatch(ctx context.Context, message protocol.Message) (*protocol.Response, error) {
	select {
	case <-e.stopping:
		return nil, ErrShuttingDown
	default:
	}

	var box <-chan protocol.Response
	if message.Kind == protocol.KindJob {
		if message.Requester == 0 {
			response := protocol.Failure(0, protocol.StatusRejected, "job submission without requester identity")
			e.metrics.JobCompleted(response.Status.String())
			return &response, nil
		}
		var err error
		box, err = e.mailbox.open(message.Requester)
		if errors.Is(err, ErrDuplicateRequester) {
			e.logger.Warn("duplicate in-flight requester", "requester", message.Requester)
			response := protocol.Failure(message.Requester, protocol.StatusRejected, err.Error())
			e.metrics.JobCompleted(response.Status.String())
			return &response, nil
		}
	}

	select {
	case e.inbound <- message:
	case <-e.stopping:
		if box != nil {
			e.mailbox.close(message.Requester)
		}
		return nil, ErrShuttingDown
	case <-ctx.Done():
		if box != nil {
			e.mailbox.close(message.Requester)
		}
		return nil, ctx.Err()
	}

	if box == nil {
		return nil, nil
	}

	// The dispatcher answers every job message it takes, so from here
	// the box is removed either by this waiter after receiving, or by
	// the delivery to a detached box.
	select {
	case response := <-box:
		e.mailbox.close(message.Requester)
		return &response, nil
	case <-e.finished:
		// Shutdown answers every job it accepted, so a response may
		// have landed just before finished closed.
		defer e.mailbox.close(message.Requester)
		select {
		case response := <-box:
			return &response, nil
		default:
		}
		response := protocol.Failure(message.Requester, protocol.StatusCancelled, "server shut down")
		return &response, nil
	case <-ctx.Done():
		e.mailbox.detach(message.Requester)
		e.logger.Warn("requester stopped waiting for its response",
			"requester", message.Requester,
			"error", ctx.Err(),
		)
		return nil, ctx.Err()
	}
}

// dispatch classifies one inbound message and routes it. It runs on
// the dispatcher goroutine only.
func (e *Engine) dispatch(message protocol.Message) {
	request, err := protocol.Classify(message)
	if err != nil {
		if message.Kind == protocol.KindManagement {
			e.logger.Warn("resize command rejected", "requested", message.Size, "error", err)
			e.metrics.ResizeRequested("rejected")
			return
		}
		e.logger.Warn("message rejected",
			"kind", message.Kind.String(),
			"requester", message.Requester,
			"error", err,
		)
		if message.Requester != 0 {
			e.respond(protocol.Failure(message.Requester, protocol.StatusRejected, err.Error()))
		}
		return
	}

	switch request := request.(type) {
	case *protocol.ResizeCommand:
		outcome := e.pool.Resize(request.Workers)
		e.metrics.ResizeRequested(outcome.String())
	case *protocol.Submission:
		e.admit(request)
	}
}

// admit checks a submission and queues it as a Job. A submission that
// fails a check is answered here and never reaches a worker.
func (e *Engine) admit(submission *protocol.Submission) {
	logger := e.logger.With(
		"requester", submission.Requester,
		"declared_length", submission.Size,
		"filename", submission.Filename,
	)

	if capacity := e.area.SlotSize(); submission.Size > uint64(capacity) {
		logger.Info("submission exceeds staging capacity", "capacity", capacity)
		e.respond(protocol.Failure(submission.Requester, protocol.StatusTooLarge,
			"declared length exceeds staging capacity"))
		return
	}

	if status, info := e.checkSlot(submission); status != protocol.StatusOK {
		logger.Info("submission slot rejected", "slot", submission.Slot, "reason", info)
		e.respond(protocol.Failure(submission.Requester, status, info))
		return
	}

	job := &schedule.Job{
		ID:         schedule.NewJobID(),
		Requester:  submission.Requester,
		Length:     submission.Size,
		Filename:   submission.Filename,
		Encoding:   submission.Encoding,
		Slot:       submission.Slot,
		LeaseToken: submission.LeaseToken,
		EnqueuedAt: e.clock.Now(),
	}
	e.inFlight.Add(1)
	if err := e.queue.Enqueue(job); err != nil {
		e.finish(job, protocol.Failure(job.Requester, protocol.StatusCancelled, err.Error()))
		return
	}
	e.metrics.JobSubmitted()
	logger.Debug("job queued", "job_id", job.ID, "sequence", job.Sequence, "slot", job.Slot)
}

// checkSlot validates the submission's staging slot and, in leased
// mode, binds its lease.
func (e *Engine) checkSlot(submission *protocol.Submission) (protocol.Status, string) {
	if e.leases == nil {
		if submission.Slot != 0 {
			return protocol.StatusRejected, "shared staging has only slot 0"
		}
		return protocol.StatusOK, ""
	}

	err := e.leases.Bind(submission.Slot, submission.LeaseToken)
	switch {
	case err == nil:
		return protocol.StatusOK, ""
	case errors.Is(err, staging.ErrNoSuchSlot):
		return protocol.StatusRejected, err.Error()
	default:
		return protocol.StatusLeaseInvalid, err.Error()
	}
}

// respond answers a submission that never became a Job.
func (e *Engine) respond(response protocol.Response) {
	e.metrics.JobCompleted(response.Status.String())
	if !e.mailbox.deliver(response) {
		e.logger.Warn("response dropped, requester not waiting", "requester", response.Requester)
	}
}
