// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package staging

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotHeld is returned by Release on a gate the caller does not hold.
var ErrNotHeld = errors.New("staging gate not held")

// Gate is a binary semaphore over one staging slot.
type Gate interface {
	// Acquire blocks until the gate is held or ctx ends. On error the
	// gate is not held.
	Acquire(ctx context.Context) error

	// Release gives up the gate.
	Release() error
}

// MemoryGate is a Gate that only excludes goroutines in this process.
type MemoryGate struct {
	token chan struct{}
}

// NewMemoryGate returns an unheld gate.
func NewMemoryGate() *MemoryGate {
	return &MemoryGate{token: make(chan struct{}, 1)}
}

func (g *MemoryGate) Acquire(ctx context.Context) error {
	select {
	case g.token <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("acquiring staging gate: %w", ctx.Err())
	}
}

func (g *MemoryGate) Release() error {
	select {
	case <-g.token:
		return nil
	default:
		return ErrNotHeld
	}
}
