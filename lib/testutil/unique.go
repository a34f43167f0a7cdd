// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Int64

// UniqueID returns a string of the form "prefix-N" where N increases
// monotonically across the test binary.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}

// UniqueRequester returns a requester identity that no other caller in
// this test binary has received.
func UniqueRequester() int64 {
	return 1_000_000 + uniqueCounter.Add(1)
}
