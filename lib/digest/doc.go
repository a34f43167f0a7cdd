// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest computes content digests of staged payloads.
//
// An [Executor] is stateless apart from its configured [Algorithm]:
// given a staging region and an exact byte length it returns a 32-byte
// [Digest], or a [*StageError] naming the stage that failed
// (initialize, update, finalize). It never panics into its caller: a
// page fault while reading a memory-mapped region is reported as an
// update failure.
//
// Payloads may be staged encoded ([EncodingZstd], [EncodingLZ4]) so
// that larger files fit the fixed staging capacity. The declared
// length is always the number of staged bytes; the digest is taken
// over the decoded content, so a file hashes identically whichever
// encoding the producer chose.
//
// [Digest.String] gives the canonical 64-character lowercase hex form
// carried in responses.
package digest
