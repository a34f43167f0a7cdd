// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package staging

// MemoryArea is an Area held in process memory, with channel gates.
type MemoryArea struct {
	slotSize int64
	data     []byte
	gates    []*MemoryGate
}

// NewMemoryArea allocates slots slots of slotSize bytes each.
func NewMemoryArea(slots int, slotSize int64) (*MemoryArea, error) {
	if err := checkLayout(slots, slotSize); err != nil {
		return nil, err
	}
	area := &MemoryArea{
		slotSize: slotSize,
		data:     make([]byte, int64(slots)*slotSize),
		gates:    make([]*MemoryGate, slots),
	}
	for i := range area.gates {
		area.gates[i] = NewMemoryGate()
	}
	return area, nil
}

func (a *MemoryArea) Slots() int      { return len(a.gates) }
func (a *MemoryArea) SlotSize() int64 { return a.slotSize }

func (a *MemoryArea) Slot(i int) ([]byte, error) {
	if err := checkSlot(i, len(a.gates)); err != nil {
		return nil, err
	}
	start := int64(i) * a.slotSize
	return a.data[start : start+a.slotSize : start+a.slotSize], nil
}

func (a *MemoryArea) Gate(i int) (Gate, error) {
	if err := checkSlot(i, len(a.gates)); err != nil {
		return nil, err
	}
	return a.gates[i], nil
}

func (a *MemoryArea) Close() error { return nil }
