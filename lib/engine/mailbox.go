// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"sync"

	"github.com/bureau-foundation/digestd/lib/protocol"
)

// mailbox routes responses to the goroutine waiting for a requester
// identity. A requester holds its box from submission until its job is
// answered, even if the waiter gives up first, so at most one job per
// requester is in flight and a later submission can never receive an
// earlier job's response.
type mailbox struct {
	mu    sync.Mutex
	boxes map[int64]*box
}

type box struct {
	responses chan protocol.Response

	// detached is set when the waiter stopped listening before the
	// job was answered. The box is removed on delivery.
	detached bool
}

func newMailbox() *mailbox {
	return &mailbox{boxes: make(map[int64]*box)}
}

// open registers a box for requester. It fails with
// ErrDuplicateRequester while the requester's previous job is
// unanswered.
func (m *mailbox) open(requester int64) (<-chan protocol.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.boxes[requester]; exists {
		return nil, ErrDuplicateRequester
	}
	b := &box{responses: make(chan protocol.Response, 1)}
	m.boxes[requester] = b
	return b.responses, nil
}

// close removes requester's box. The waiter calls it once it has its
// response, or when its message never reached the dispatcher.
func (m *mailbox) close(requester int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.boxes, requester)
}

// detach is called by a waiter that stops listening while its job is
// still pending. The requester stays reserved until deliver answers
// the job. If the response already arrived, the box is removed now.
func (m *mailbox) detach(requester int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, exists := m.boxes[requester]
	if !exists {
		return
	}
	if len(b.responses) > 0 {
		delete(m.boxes, requester)
		return
	}
	b.detached = true
}

// deliver places response in its requester's box. It returns false if
// nobody is listening: no box, a detached box (which is then removed),
// or a box that already holds a response.
func (m *mailbox) deliver(response protocol.Response) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, exists := m.boxes[response.Requester]
	if !exists {
		return false
	}
	if b.detached {
		delete(m.boxes, response.Requester)
		return false
	}
	select {
	case b.responses <- response:
		return true
	default:
		return false
	}
}

// waiting returns the number of requesters with an unanswered job.
func (m *mailbox) waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.boxes)
}
