// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package staging

import (
	"errors"
	"fmt"
)

// ErrNoSuchSlot is returned for a slot index outside the area.
var ErrNoSuchSlot = errors.New("no such staging slot")

// Area is a set of equally sized staging slots, each with its own gate.
type Area interface {
	// Slots returns the number of slots.
	Slots() int

	// SlotSize returns the capacity of each slot in bytes.
	SlotSize() int64

	// Slot returns the bytes of slot i. The slice aliases the area;
	// callers hold the slot's gate while touching it.
	Slot(i int) ([]byte, error)

	// Gate returns the gate for slot i.
	Gate(i int) (Gate, error)

	// Close releases the area's resources. Slices returned by Slot
	// must not be used afterwards.
	Close() error
}

func checkSlot(i, slots int) error {
	if i < 0 || i >= slots {
		return fmt.Errorf("%w: %d (area has %d)", ErrNoSuchSlot, i, slots)
	}
	return nil
}

func checkLayout(slots int, slotSize int64) error {
	if slots < 1 {
		return fmt.Errorf("staging area needs at least one slot, got %d", slots)
	}
	if slotSize <= 0 {
		return fmt.Errorf("staging slot size must be positive, got %d", slotSize)
	}
	return nil
}
