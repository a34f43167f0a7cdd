// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the digestd
// binaries: reporting an error before the structured logger exists,
// and mapping a run() result to an exit code.
package process
