// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine is the digestd scheduler context: it owns the job
// queue, the worker pool, the staging area and its leases, the digest
// executor, and the mailbox that routes responses back to waiting
// requesters.
//
// Inbound messages reach a single dispatcher goroutine through
// [Engine.Dispatch]. The dispatcher classifies each one: a resize
// command goes straight to the pool, a job submission is checked
// against slot capacity (and, in leased mode, its lease is bound) and
// then queued. A job rejected here never reaches a worker.
//
// Each worker runs one job at a time:
//
//	dequeue → acquire slot gate → check length → digest → release gate → respond
//
// A held gate is released on every path out of that sequence. A gate
// that could not be acquired is never released. Every failure becomes
// a Response with a non-zero status for that job alone.
//
// # Staging modes
//
// In shared mode there is one slot. The producer protocol releases the
// gate right after submitting, so a second producer can overwrite the
// slot before a worker reads the first job's bytes; the first job is
// then digested over the second job's payload. That behavior is kept
// as is and covered by a test.
//
// In leased mode a producer first reserves a slot with [Engine.Reserve]
// and submits with the lease token. The dispatcher binds the lease and
// the slot stays out of circulation until the worker has finished with
// it, so no other producer can be handed that slot in the meantime.
//
// # Shutdown
//
// When the context passed to [Engine.Run] ends: new dispatches fail
// with [ErrShuttingDown]; the queue is closed and every job still
// queued is answered with StatusCancelled; running jobs get the drain
// timeout to finish before their workers' contexts are cancelled; Run
// then returns and the caller releases the staging area and socket.
package engine
