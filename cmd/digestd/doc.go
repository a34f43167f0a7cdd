// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command digestd is the resident digest server. Producers stage a
// file's bytes in a shared memory-mapped staging area and submit a job
// over the digestd Unix socket; digestd queues the job, a worker reads
// the staged bytes under the slot's gate, and the requester receives
// the 64-character hex digest or a non-zero status.
//
// # Socket actions
//
// Each connection carries one CBOR request and one CBOR response (see
// lib/service):
//
//   - submit: {requester, size, filename, encoding, slot, lease_token}.
//     The response data is the job's Response. The connection stays
//     open until the job finishes.
//   - resize: {size}. Grows the worker pool. The envelope confirms
//     delivery only; shrinking is ignored.
//   - reserve: leases a staging slot in leased mode.
//   - release: {slot, token}. Returns a reserved slot that will not be
//     submitted.
//   - status: the server's policy, pool, queue and staging layout.
//
// # Configuration
//
// digestd reads a YAML (or JSON/JSONC) file named by --config or the
// DIGESTD_CONFIG environment variable, and runs on defaults when
// neither is given. --policy and --workers override the file.
//
// # Shutdown
//
// On SIGINT or SIGTERM digestd stops accepting submissions, answers
// every queued job with the cancelled status, lets running jobs drain
// for shutdown.drain_timeout, then closes the socket and removes the
// staging and lock files.
package main
