// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package staging

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bureau-foundation/digestd/lib/clock"
)

var (
	// ErrLeaseExpired is returned by Bind when the slot has no pending
	// reservation: it was never reserved, it expired, or it was
	// already bound.
	ErrLeaseExpired = errors.New("staging lease expired or not reserved")

	// ErrLeaseMismatch is returned by Bind and Cancel when the token
	// does not match the slot's current reservation.
	ErrLeaseMismatch = errors.New("staging lease token does not match")

	// ErrLeaseBound is returned by Cancel for a lease already bound to
	// a queued job. The slot is freed when the job finishes.
	ErrLeaseBound = errors.New("staging lease is bound to a submitted job")
)

// Lease is a producer's reservation of one staging slot.
type Lease struct {
	Slot      int
	Token     uint64
	ExpiresAt time.Time
}

type leaseState int

const (
	reserved leaseState = iota
	bound
)

type heldLease struct {
	token uint64
	state leaseState
	timer *clock.Timer
}

func (h *heldLease) stopTimer() {
	if h.timer != nil {
		h.timer.Stop()
	}
}

// Leases tracks which staging slots are reserved by producers or bound
// to queued jobs. A slot is handed to one producer at a time and only
// returns to the free set on Release or, if never bound, on expiry.
type Leases struct {
	clock clock.Clock
	ttl   time.Duration

	// free holds the indices of unleased slots.
	free chan int

	mu   sync.Mutex
	held map[int]*heldLease
}

// NewLeases returns a lease table over slots slots. A reservation not
// bound within ttl expires.
func NewLeases(slots int, ttl time.Duration, clk clock.Clock) *Leases {
	leases := &Leases{
		clock: clk,
		ttl:   ttl,
		free:  make(chan int, slots),
		held:  make(map[int]*heldLease, slots),
	}
	for i := range slots {
		leases.free <- i
	}
	return leases
}

// Slots returns the number of slots the table manages.
func (l *Leases) Slots() int { return cap(l.free) }

// Free returns the number of unleased slots.
func (l *Leases) Free() int { return len(l.free) }

// Reserve blocks until a slot is free or ctx ends, then reserves it.
func (l *Leases) Reserve(ctx context.Context) (Lease, error) {
	var slot int
	select {
	case slot = <-l.free:
	case <-ctx.Done():
		return Lease{}, fmt.Errorf("waiting for a free staging slot: %w", ctx.Err())
	}

	token := rand.Uint64() | 1
	entry := &heldLease{token: token, state: reserved}
	l.mu.Lock()
	l.held[slot] = entry
	l.mu.Unlock()

	// Armed outside the lock: a fake clock may run expire inline.
	timer := l.clock.AfterFunc(l.ttl, func() { l.expire(slot, token) })
	l.mu.Lock()
	entry.timer = timer
	l.mu.Unlock()

	return Lease{Slot: slot, Token: token, ExpiresAt: l.clock.Now().Add(l.ttl)}, nil
}

// Bind moves a reservation to the bound state. A bound lease does not
// expire; it is held until Release.
func (l *Leases) Bind(slot int, token uint64) error {
	if err := checkSlot(slot, cap(l.free)); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.held[slot]
	if !ok || entry.state != reserved {
		return fmt.Errorf("%w: slot %d", ErrLeaseExpired, slot)
	}
	if entry.token != token {
		return fmt.Errorf("%w: slot %d", ErrLeaseMismatch, slot)
	}
	entry.stopTimer()
	entry.state = bound
	return nil
}

// Cancel gives back a reservation that was never bound. A bound lease
// stays held until Release, so its slot cannot be handed out while the
// job's payload is unread. Cancelling a lease that already expired is
// a no-op.
func (l *Leases) Cancel(slot int, token uint64) error {
	if err := checkSlot(slot, cap(l.free)); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.held[slot]
	if !ok {
		return nil
	}
	if entry.token != token {
		return fmt.Errorf("%w: slot %d", ErrLeaseMismatch, slot)
	}
	if entry.state == bound {
		return fmt.Errorf("%w: slot %d", ErrLeaseBound, slot)
	}
	entry.stopTimer()
	l.freeLocked(slot)
	return nil
}

// Release returns the slot to the free set if token still holds it,
// whether reserved or bound. It is called once the bound job is done
// with the slot. Releasing a lease that is gone is a no-op.
func (l *Leases) Release(slot int, token uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.held[slot]
	if !ok || entry.token != token {
		return
	}
	entry.stopTimer()
	l.freeLocked(slot)
}

func (l *Leases) expire(slot int, token uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.held[slot]
	if !ok || entry.token != token || entry.state != reserved {
		return
	}
	l.freeLocked(slot)
}

// freeLocked drops the slot's lease and makes it reservable. Caller
// holds l.mu.
func (l *Leases) freeLocked(slot int) {
	delete(l.held, slot)
	l.free <- slot
}
