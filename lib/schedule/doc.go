// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schedule holds pending digest jobs and hands them to workers
// in policy order.
//
// A [Queue] is a single critical section: one mutex guards the pending
// set and a condition variable wakes exactly one blocked consumer per
// insertion. Two policies are supported:
//
//   - [FCFS]: dequeue order is arrival order. Backed by a deque.
//   - [SJF]: dequeue order is ascending declared length, ties broken by
//     arrival order. Backed by a min-heap, so ordering is re-evaluated
//     on every arrival: a large job at the head is overtaken by any
//     smaller job that arrives before it is dequeued. Large jobs can
//     starve under a sustained stream of small ones; that is the
//     policy, not a defect.
//
// The queue never rejects a job for its declared length. Capacity is
// checked by the caller before Enqueue.
package schedule
