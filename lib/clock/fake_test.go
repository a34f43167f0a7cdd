// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestFakeNowStandsStill(t *testing.T) {
	fake := Fake(epoch)
	if !fake.Now().Equal(epoch) {
		t.Fatalf("Now = %v, want %v", fake.Now(), epoch)
	}
	fake.Advance(90 * time.Second)
	if want := epoch.Add(90 * time.Second); !fake.Now().Equal(want) {
		t.Errorf("Now after Advance = %v, want %v", fake.Now(), want)
	}
}

func TestFakeAfterFuncFiresOnDeadline(t *testing.T) {
	fake := Fake(epoch)
	fired := 0
	fake.AfterFunc(10*time.Second, func() { fired++ })

	fake.Advance(9 * time.Second)
	if fired != 0 {
		t.Fatalf("fired before deadline")
	}
	fake.Advance(time.Second)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	fake.Advance(time.Hour)
	if fired != 1 {
		t.Errorf("one-shot timer fired %d times", fired)
	}
}

func TestFakeAfterFuncStop(t *testing.T) {
	fake := Fake(epoch)
	fired := false
	timer := fake.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("Stop on a pending timer returned false")
	}
	if timer.Stop() {
		t.Error("second Stop returned true")
	}
	fake.Advance(time.Minute)
	if fired {
		t.Error("stopped timer fired")
	}
	if count := fake.PendingCount(); count != 0 {
		t.Errorf("PendingCount = %d, want 0", count)
	}
}

func TestFakeAfterFiresInDeadlineOrder(t *testing.T) {
	fake := Fake(epoch)
	var order []int
	fake.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	fake.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	fake.AfterFunc(2*time.Second, func() { order = append(order, 2) })

	fake.Advance(5 * time.Second)
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("firing order = %v, want [1 2 3]", order)
	}
}

func TestFakeAfterChannel(t *testing.T) {
	fake := Fake(epoch)
	channel := fake.After(time.Minute)

	select {
	case <-channel:
		t.Fatal("After delivered before Advance")
	default:
	}

	fake.Advance(time.Minute)
	select {
	case got := <-channel:
		if want := epoch.Add(time.Minute); !got.Equal(want) {
			t.Errorf("After delivered %v, want %v", got, want)
		}
	default:
		t.Fatal("After did not deliver after Advance")
	}
}
