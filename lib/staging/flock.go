// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package staging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// flockPollInterval is how often a blocked Acquire retries the file
// lock. flock has no timed or cancellable blocking form.
const flockPollInterval = 2 * time.Millisecond

// FlockGate is a Gate backed by an exclusive flock(2) on a lock file.
// Each Acquire opens its own descriptor, so two FlockGates on the same
// path exclude each other even inside one process. Goroutines sharing
// one FlockGate queue on an in-process token first.
type FlockGate struct {
	path  string
	token chan struct{}

	mu sync.Mutex
	fd int
}

// NewFlockGate returns a gate on the lock file at path. The file is
// created on first Acquire.
func NewFlockGate(path string) *FlockGate {
	return &FlockGate{path: path, token: make(chan struct{}, 1), fd: -1}
}

func (g *FlockGate) Acquire(ctx context.Context) error {
	select {
	case g.token <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("acquiring staging gate %s: %w", g.path, ctx.Err())
	}

	fd, err := g.lock(ctx)
	if err != nil {
		<-g.token
		return err
	}

	g.mu.Lock()
	g.fd = fd
	g.mu.Unlock()
	return nil
}

// lock opens the lock file and polls for the exclusive lock until it
// is granted or ctx ends.
func (g *FlockGate) lock(ctx context.Context) (int, error) {
	fd, err := unix.Open(g.path, unix.O_CREAT|unix.O_RDWR|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return -1, fmt.Errorf("opening gate lock file %s: %w", g.path, err)
	}

	ticker := time.NewTicker(flockPollInterval)
	defer ticker.Stop()
	for {
		err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return fd, nil
		}
		if err != unix.EWOULDBLOCK && err != unix.EINTR {
			unix.Close(fd)
			return -1, fmt.Errorf("locking %s: %w", g.path, err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			unix.Close(fd)
			return -1, fmt.Errorf("acquiring staging gate %s: %w", g.path, ctx.Err())
		}
	}
}

func (g *FlockGate) Release() error {
	g.mu.Lock()
	fd := g.fd
	g.fd = -1
	g.mu.Unlock()

	if fd < 0 {
		return ErrNotHeld
	}
	// Closing the descriptor drops the lock even if LOCK_UN fails.
	unlockErr := unix.Flock(fd, unix.LOCK_UN)
	closeErr := unix.Close(fd)
	<-g.token
	if unlockErr != nil {
		return fmt.Errorf("unlocking %s: %w", g.path, unlockErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing gate lock file %s: %w", g.path, closeErr)
	}
	return nil
}
