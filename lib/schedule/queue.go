// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schedule

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Enqueue and Dequeue once the queue has been
// closed.
var ErrClosed = errors.New("job queue closed")

// Queue is the mutex-protected pending job set. The policy is fixed at
// construction.
type Queue struct {
	policy Policy

	mu           sync.Mutex
	nonEmpty     *sync.Cond
	pending      pendingSet
	nextSequence uint64
	closed       bool
}

// NewQueue returns an empty queue ordered by policy.
func NewQueue(policy Policy) *Queue {
	queue := &Queue{
		policy:  policy,
		pending: newPendingSet(policy),
	}
	queue.nonEmpty = sync.NewCond(&queue.mu)
	return queue
}

// Policy returns the dispatch policy.
func (q *Queue) Policy() Policy {
	return q.policy
}

// Enqueue assigns the job its arrival sequence number, inserts it in
// policy order, and wakes one waiting consumer.
func (q *Queue) Enqueue(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.nextSequence++
	job.Sequence = q.nextSequence
	q.pending.push(job)
	q.nonEmpty.Signal()
	return nil
}

// Dequeue blocks until a job is available and removes the head. It
// returns ErrClosed once the queue is closed, or ctx.Err() if ctx ends
// first.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	// sync.Cond has no cancellation; wake every waiter so the one
	// whose context ended can notice.
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.nonEmpty.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.pending.len() == 0 {
		if q.closed {
			return nil, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q.nonEmpty.Wait()
	}
	return q.pending.pop(), nil
}

// Len returns the number of queued jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.len()
}

// Close stops the queue and returns the jobs that were never
// dequeued, in policy order. Blocked consumers return ErrClosed.
// Subsequent calls return nil.
func (q *Queue) Close() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	var remaining []*Job
	for q.pending.len() > 0 {
		remaining = append(remaining, q.pending.pop())
	}
	q.nonEmpty.Broadcast()
	return remaining
}
