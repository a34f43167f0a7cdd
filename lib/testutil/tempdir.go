// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"testing"
)

// SocketDir creates a temporary directory in /tmp suitable for Unix
// domain sockets and staging lock files. The directory is removed when
// the test completes.
func SocketDir(t *testing.T) string {
	t.Helper()

	directory, err := os.MkdirTemp("/tmp", "digestd-test-*")
	if err != nil {
		t.Fatalf("creating socket directory: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(directory)
	})
	return directory
}
