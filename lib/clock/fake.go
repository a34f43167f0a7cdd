// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock set to initial. Time stands still until
// Advance is called.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a deterministic Clock for tests. AfterFunc callbacks
// run synchronously inside Advance, in deadline order, after the
// clock's lock is released; a callback may call back into the clock.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	channel  chan time.Time
	callback func()
	stopped  bool
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After returns a channel that receives once the clock is advanced
// past now+d.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}
	c.waiters = append(c.waiters, &fakeWaiter{
		deadline: c.current.Add(d),
		channel:  channel,
	})
	return channel
}

// AfterFunc registers f to run when the clock is advanced past now+d.
// If d <= 0, f runs synchronously before AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{stopFunc: func() bool { return false }}
	}

	c.mu.Lock()
	waiter := &fakeWaiter{deadline: c.current.Add(d), callback: f}
	c.waiters = append(c.waiters, waiter)
	c.mu.Unlock()

	return &Timer{stopFunc: func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if waiter.stopped {
			return false
		}
		waiter.stopped = true
		return true
	}}
}

// Advance moves the clock forward by d and fires every waiter whose
// deadline is at or before the new time.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	now := c.current

	var expired, pending []*fakeWaiter
	for _, waiter := range c.waiters {
		switch {
		case waiter.stopped:
		case !waiter.deadline.After(now):
			waiter.stopped = true
			expired = append(expired, waiter)
		default:
			pending = append(pending, waiter)
		}
	}
	c.waiters = pending
	c.mu.Unlock()

	sort.SliceStable(expired, func(i, j int) bool {
		return expired[i].deadline.Before(expired[j].deadline)
	})
	for _, waiter := range expired {
		if waiter.callback != nil {
			waiter.callback()
			continue
		}
		waiter.channel <- now
	}
}

// PendingCount returns the number of waiters that have neither fired
// nor been stopped.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, waiter := range c.waiters {
		if !waiter.stopped {
			count++
		}
	}
	return count
}
