// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package workerpool runs the growth-only set of workers that drain the
// job queue.
//
// Each worker is a goroutine with its own cancellable context, tracked
// in the pool's worker list. A worker loops forever: dequeue a job,
// hand it to the pool's [ProcessFunc], repeat. A panic inside
// ProcessFunc is recovered and logged so that a failure stays local to
// one job. Workers exit only when the job source reports that it is
// closed or their context is cancelled.
//
// The recorded size never decreases. [Pool.Resize] with a count at or
// below the current size is accepted and logged as unsupported.
package workerpool
