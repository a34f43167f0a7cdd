// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package staging

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MappedArea is an Area backed by a MAP_SHARED, read-write mapping of
// a file. Any process that opens the same path with the same layout
// sees the same bytes. Slot i's gate is a flock on "<path>.lock.<i>".
type MappedArea struct {
	path     string
	fd       int
	data     []byte
	slotSize int64
	gates    []*FlockGate
}

// OpenMapped creates or opens the staging file at path and maps it. A
// new file is sized to slots*slotSize. An existing file of a different
// size is an error; remove it to change the layout.
func OpenMapped(path string, slots int, slotSize int64) (*MappedArea, error) {
	if err := checkLayout(slots, slotSize); err != nil {
		return nil, err
	}
	size := int64(slots) * slotSize

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening staging file %s: %w", path, err)
	}

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stating staging file: %w", err)
	}

	if stat.Size == 0 {
		if err := unix.Ftruncate(fd, size); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("sizing staging file to %d bytes: %w", size, err)
		}
	} else if stat.Size != size {
		unix.Close(fd)
		return nil, fmt.Errorf("staging file %s is %d bytes but the layout needs %d (%d slots of %d); remove it to change the layout",
			path, stat.Size, size, slots, slotSize)
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("memory-mapping staging file: %w", err)
	}

	area := &MappedArea{
		path:     path,
		fd:       fd,
		data:     data,
		slotSize: slotSize,
		gates:    make([]*FlockGate, slots),
	}
	for i := range area.gates {
		area.gates[i] = NewFlockGate(LockPath(path, i))
	}
	return area, nil
}

// LockPath returns the lock file guarding slot i of the staging file
// at path.
func LockPath(path string, slot int) string {
	return fmt.Sprintf("%s.lock.%d", path, slot)
}

// Path returns the staging file path.
func (a *MappedArea) Path() string { return a.path }

func (a *MappedArea) Slots() int      { return len(a.gates) }
func (a *MappedArea) SlotSize() int64 { return a.slotSize }

func (a *MappedArea) Slot(i int) ([]byte, error) {
	if err := checkSlot(i, len(a.gates)); err != nil {
		return nil, err
	}
	start := int64(i) * a.slotSize
	return a.data[start : start+a.slotSize : start+a.slotSize], nil
}

func (a *MappedArea) Gate(i int) (Gate, error) {
	if err := checkSlot(i, len(a.gates)); err != nil {
		return nil, err
	}
	return a.gates[i], nil
}

// Close unmaps the file and closes its descriptor. The staging file
// and lock files stay on disk for other processes; RemoveFiles deletes
// them.
func (a *MappedArea) Close() error {
	var firstErr error
	if a.data != nil {
		if err := unix.Munmap(a.data); err != nil {
			firstErr = fmt.Errorf("unmapping staging file: %w", err)
		}
		a.data = nil
	}
	if a.fd >= 0 {
		if err := unix.Close(a.fd); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing staging file: %w", err)
		}
		a.fd = -1
	}
	return firstErr
}

// RemoveFiles deletes the staging file and its lock files. Call it
// after Close, from the process that owns the area.
func (a *MappedArea) RemoveFiles() error {
	var firstErr error
	remove := func(path string) {
		if err := unix.Unlink(path); err != nil && err != unix.ENOENT && firstErr == nil {
			firstErr = fmt.Errorf("removing %s: %w", path, err)
		}
	}
	remove(a.path)
	for i := range a.gates {
		remove(LockPath(a.path, i))
	}
	return firstErr
}
