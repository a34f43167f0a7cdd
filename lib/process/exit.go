// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
)

// ExitError carries a specific exit code out of run(). digestctl uses
// it to exit 2 when the server answered with a failure status, as
// distinct from 1 for transport or usage errors.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// Fatal writes "error: err" to stderr and exits. The exit code is
// taken from an *ExitError in the chain, or 1.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	os.Exit(1)
}
