// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schedule

import (
	"container/heap"
	"container/list"
)

// pendingSet is the ordered storage behind a Queue. Callers hold the
// queue lock.
type pendingSet interface {
	push(job *Job)
	pop() *Job
	len() int
}

func newPendingSet(policy Policy) pendingSet {
	if policy == SJF {
		return &shortestFirst{}
	}
	return &arrivalOrder{jobs: list.New()}
}

// arrivalOrder is a FIFO deque.
type arrivalOrder struct {
	jobs *list.List
}

func (a *arrivalOrder) push(job *Job) { a.jobs.PushBack(job) }

func (a *arrivalOrder) pop() *Job {
	front := a.jobs.Front()
	if front == nil {
		return nil
	}
	return a.jobs.Remove(front).(*Job)
}

func (a *arrivalOrder) len() int { return a.jobs.Len() }

// shortestFirst is a min-heap on (Length, Sequence).
type shortestFirst struct {
	jobs jobHeap
}

func (s *shortestFirst) push(job *Job) { heap.Push(&s.jobs, job) }

func (s *shortestFirst) pop() *Job {
	if s.jobs.Len() == 0 {
		return nil
	}
	return heap.Pop(&s.jobs).(*Job)
}

func (s *shortestFirst) len() int { return s.jobs.Len() }

type jobHeap []*Job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].Length == h[j].Length {
		return h[i].Sequence < h[j].Sequence
	}
	return h[i].Length < h[j].Length
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) { *h = append(*h, x.(*Job)) }

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return job
}
