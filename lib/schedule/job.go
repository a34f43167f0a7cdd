// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/digestd/lib/digest"
)

// Job is one pending digest request.
type Job struct {
	// ID correlates log lines for this job. Not part of the wire
	// protocol.
	ID string

	// Requester is the identity the response is addressed to.
	Requester int64

	// Length is the declared payload length in staged bytes.
	Length uint64

	// Filename is diagnostic only.
	Filename string

	// Encoding is how the payload was staged.
	Encoding digest.Encoding

	// Slot is the staging slot holding the payload. Always 0 in
	// shared staging mode.
	Slot int

	// LeaseToken identifies the slot lease in leased staging mode.
	LeaseToken uint64

	// Sequence is the arrival number assigned by Enqueue.
	Sequence uint64

	// EnqueuedAt is set by the caller, used for latency metrics.
	EnqueuedAt time.Time
}

// NewJobID returns a fresh correlation ID.
func NewJobID() string {
	return uuid.NewString()
}

// Policy selects the dequeue order.
type Policy int

const (
	FCFS Policy = iota
	SJF
)

func (p Policy) String() string {
	switch p {
	case FCFS:
		return "fcfs"
	case SJF:
		return "sjf"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy accepts "fcfs" or "sjf" in any case.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "fcfs":
		return FCFS, nil
	case "sjf":
		return SJF, nil
	default:
		return 0, fmt.Errorf("invalid scheduling policy %q (choose fcfs or sjf)", name)
	}
}
