// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version.
	Version = "0.1.0-dev"
)

// Info returns a one-line version string for --version output.
func Info() string {
	return fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildTime)
}

// Print writes "<binary> <info>" and the Go toolchain to stdout.
func Print(binary string) {
	fmt.Printf("%s %s\n  Go: %s\n  Platform: %s/%s\n",
		binary, Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
